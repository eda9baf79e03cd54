package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/daemon"
)

var stopListen string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running service",
	Long:  `Asks the instance listening on the control address to shut down.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := stopListen
		if addr == "" {
			env, err := config.ParseEnv()
			if err != nil {
				return err
			}
			addr = env.Listen
		}

		if err := daemon.StopServer(addr); err != nil {
			return err
		}
		fmt.Println("Shutdown requested")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopListen, "listen", "", "control server address (env MUDRA_LISTEN, default :8090)")
}
