package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-rtpcast"
	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
)

func init() {
	var file string

	command := &cobra.Command{
		Use:   "broadcast",
		Short: "broadcast an audio file in the foreground",
		Long:  `broadcast an audio file as RTP over UDP until interrupted or until the encoder exits`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(cmd.Context(), file)
		},
	}

	command.Flags().StringVar(&file, "file", "", "audio file to broadcast, the default file is used when empty")

	rootCmd.AddCommand(command)
}

func runBroadcast(ctx context.Context, file string) error {
	cfg := rtpcast.Service.Broadcast()
	logger := log.With().Str("module", "cmd").Logger()

	manager := broadcast.New(cfg.Options())

	session, err := manager.Start(ctx, broadcast.Config{
		Address:  cfg.Address,
		Port:     cfg.Port,
		FilePath: file,
	})
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Warn().Msgf("received %s, stopping broadcast", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout+2*time.Second)
		defer cancel()

		if err := manager.Shutdown(ctx); err != nil {
			return err
		}
	case <-session.Done():
	}

	exit, _ := session.Exit()
	logger.Info().
		Str("reason", string(exit.Reason)).
		Int("code", exit.Code).
		Msg("broadcast finished")

	var abnormal *broadcast.EncoderExitedAbnormallyError
	if errors.As(exit.Err, &abnormal) {
		return abnormal
	}

	return nil
}
