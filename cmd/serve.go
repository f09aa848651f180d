package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-rtpcast"
	"github.com/m1k1o/go-rtpcast/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve broadcast HTTP API",
		Long:  `serve HTTP API that starts and stops RTP broadcasts`,
		Run:   rtpcast.Service.ServeCommand,
	}

	configs := []config.Config{
		rtpcast.Service.ServerConfig,
	}

	// values are read by rtpcast.Service.LoadConfig
	cobra.OnInitialize(rtpcast.Service.Preflight)

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
