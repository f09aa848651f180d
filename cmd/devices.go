package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m1k1o/go-rtpcast"
	"github.com/m1k1o/go-rtpcast/pkg/devices"
)

func init() {
	command := &cobra.Command{
		Use:   "devices",
		Short: "list audio input devices",
		Long:  `list audio input devices reported by ffmpeg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			broadcast := rtpcast.Service.Broadcast()
			lister := devices.New(broadcast.Devices())

			names, err := lister.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}

	rootCmd.AddCommand(command)
}
