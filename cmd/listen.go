package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-rtpcast/pkg/rtpmon"
)

func init() {
	var bind string
	var interval time.Duration

	command := &cobra.Command{
		Use:   "listen",
		Short: "receive a broadcast and report RTP statistics",
		Long:  `receive RTP packets on a UDP address and periodically report stream statistics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.With().Str("module", "listen").Logger()

			return rtpmon.New(bind, interval).Run(ctx, func(stats rtpmon.Stats) {
				if stats.Packets == 0 {
					logger.Info().Uint64("invalid", stats.Invalid).Msg("no RTP packets received")
					return
				}

				logger.Info().
					Str("source", stats.Source).
					Uint32("ssrc", stats.SSRC).
					Str("payload", rtpmon.PayloadName(stats.PayloadType)).
					Uint64("packets", stats.Packets).
					Uint64("bytes", stats.Bytes).
					Uint64("lost", stats.Lost).
					Uint64("invalid", stats.Invalid).
					Time("last", stats.LastPacket).
					Msg("stream statistics")
			})
		},
	}

	command.Flags().StringVar(&bind, "bind", ":4455", "UDP address to receive the broadcast on")
	command.Flags().DurationVar(&interval, "interval", 5*time.Second, "how often statistics are reported")

	rootCmd.AddCommand(command)
}
