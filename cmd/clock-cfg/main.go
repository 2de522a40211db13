// Clock-cfg configures esp-clock devices from a laptop or phone shell.
//
// During setup it talks to the clock's captive portal at 192.168.71.1 to
// hand over Wi-Fi credentials. Once the clock has joined a network it finds
// the clock over mDNS and drives the web portal: timezone, brightness, theme,
// hour format and factory reset.
//
// Usage:
//
//	clock-cfg [command] [flags]
//
// Running without arguments launches the setup wizard.
// See 'clock-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/espclock/espclock/internal/deviceconfig"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/version"
)

// Global flags
var (
	clockTarget string
	clockPort   int
	timeout     time.Duration
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clock-cfg",
	Short: "esp-clock configuration utility",
	Long: `A utility for setting up and configuring esp-clock devices.

Join the clock's "esp-clock" Wi-Fi network and run 'clock-cfg setup' (or
just 'clock-cfg') to give it your Wi-Fi credentials. Once it has joined your
network, 'clock-cfg scan' finds it and the other commands change its settings.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runSetup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&clockTarget, "clock", "", "Clock address (host, host:port) or nickname from the registry")
	pf.IntVar(&clockPort, "port", deviceconfig.DefaultPort, "Clock HTTP port")
	pf.DurationVar(&timeout, "timeout", deviceconfig.DefaultTimeout, "Per-request timeout")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Detailed("clock-cfg"))
	},
}
