// Clockd runs the esp-clock boot sequence on the clock's host.
//
// With no stored Wi-Fi credentials it raises the esp-clock access point,
// answers every DNS query with its own address and serves the captive
// portal. Once credentials arrive it restarts, joins the network and serves
// the web portal that controls the display.
//
// Usage:
//
//	clockd run [flags]
//
// See 'clockd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/version"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clockd",
	Short: "esp-clock device daemon",
	Long: `The esp-clock device daemon.

clockd decides at every boot whether the clock can join a known network or
must open its setup access point, and runs the matching services:

  setup mode:   esp-clock access point, DNS hijack responder, captive portal
  operational:  web portal for timezone, brightness, theme and hour format`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Detailed("clockd"))
	},
}
