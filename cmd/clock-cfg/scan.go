package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/espclock/espclock/internal/config"
)

var scanTimeout time.Duration

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 0, "How long to listen (default: registry discover_timeout)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(forgetCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find clocks on the local network",
	Long: `Find operational clocks through their mDNS advertisement and remember
them in the registry file.`,
	Example: `  clock-cfg scan
  clock-cfg scan --scan-timeout 15s`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	scanner := newScanner(reg)
	if scanTimeout > 0 {
		scanner.Timeout = scanTimeout
	}

	fmt.Fprintf(out, "Scanning for clocks (timeout: %s)...\n\n", scanner.Timeout)
	clocks, err := scanner.ScanForClocks(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(clocks) == 0 {
		fmt.Fprintln(out, "No clocks found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - A clock still in setup mode is only reachable on the esp-clock network; use 'clock-cfg setup'")
		fmt.Fprintln(out, "  - Make sure this machine is on the same network as the clock")
		fmt.Fprintln(out, "  - Try a longer --scan-timeout")
		fmt.Fprintln(out, "  - Use --clock <ip> if multicast is blocked")
		return nil
	}

	fmt.Fprintf(out, "Found %d clock(s):\n\n", len(clocks))
	for i, c := range clocks {
		reg.UpdateClockLastSeen(c.Instance, c.IP, c.Port)
		fmt.Fprintf(out, "%d. %s\n", i+1, reg.DisplayName(c.Instance))
		fmt.Fprintf(out, "   Address: %s\n", c.BaseURL())
		if v := c.GetMetadata("version"); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		if ssid := c.GetMetadata("ssid"); ssid != "" {
			fmt.Fprintf(out, "   Network: %s\n", ssid)
		}
		fmt.Fprintln(out)
	}
	saveRegistry(reg, out)

	fmt.Fprintln(out, "Use 'clock-cfg name <instance> <nickname>' to give a clock a short name")
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List clocks remembered in the registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		instances := reg.Instances()
		if len(instances) == 0 {
			fmt.Fprintln(out, "No clocks remembered yet. Run 'clock-cfg scan'.")
			return nil
		}
		for _, instance := range instances {
			c := reg.GetClock(instance)
			fmt.Fprintf(out, "%-20s %s:%d", reg.DisplayName(instance), c.LastIP, c.LastPort)
			if !c.LastSeen.IsZero() {
				fmt.Fprintf(out, "  seen %s", c.LastSeen.Format(time.DateTime))
			}
			if c.SSID != "" {
				fmt.Fprintf(out, "  on %q", c.SSID)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var nameCmd = &cobra.Command{
	Use:     "name <instance> <nickname>",
	Short:   "Give a remembered clock a nickname",
	Example: `  clock-cfg name esp-clock kitchen`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if reg.GetClock(args[0]) == nil {
			return fmt.Errorf("unknown clock %q; run 'clock-cfg scan' first", args[0])
		}
		if other, _, ok := reg.FindByNickname(args[1]); ok && other != args[0] {
			return fmt.Errorf("nickname %q is already used by %s", args[1], other)
		}
		reg.SetClockNickname(args[0], args[1])
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q\n", args[0], args[1])
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <instance|nickname>",
	Short: "Remove a clock from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		instance := args[0]
		if name, _, ok := reg.FindByNickname(args[0]); ok {
			instance = name
		}
		if reg.GetClock(instance) == nil {
			return fmt.Errorf("unknown clock %q", args[0])
		}
		reg.RemoveClock(instance)
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", instance)
		return nil
	},
}
