package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/m1k1o/go-rtpcast"
)

type effectiveConfig struct {
	Broadcast any `yaml:"broadcast"`
	Server    any `yaml:"server"`
}

func init() {
	command := &cobra.Command{
		Use:   "config",
		Short: "print effective configuration",
		Long:  `print effective configuration after merging flags, environment and config file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			return enc.Encode(effectiveConfig{
				Broadcast: rtpcast.Service.Broadcast(),
				Server:    rtpcast.Service.Server(),
			})
		},
	}

	rootCmd.AddCommand(command)
}
