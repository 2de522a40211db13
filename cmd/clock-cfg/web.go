package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/config"
	"github.com/espclock/espclock/internal/deviceconfig"
	"github.com/espclock/espclock/internal/ui"
)

var (
	statusJSON bool
	resetYes   bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status JSON")
	factoryResetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(timezoneCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(hourFormatCmd)
	rootCmd.AddCommand(factoryResetCmd)
}

// withClock resolves the target clock and runs fn with a client for it.
func withClock(cmd *cobra.Command, fn func(ctx context.Context, t target, c *deviceconfig.Client) error) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	t, err := resolveTarget(cmd.Context(), reg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := fn(cmd.Context(), t, t.client()); err != nil {
		var devErr *deviceconfig.DeviceError
		if errors.As(err, &devErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderFailure("Clock request failed", err, deviceconfig.GetTroubleshootingHint(err)))
			return errors.New(deviceconfig.GetShortErrorMessage(err))
		}
		return err
	}
	return nil
}

// applied prints the clock's reply to a setting change.
func applied(cmd *cobra.Command, t target, setting, value, reply string) {
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess(setting+" updated", []ui.Detail{
		{Key: "Clock", Value: t.addr()},
		{Key: setting, Value: value},
		{Key: "Reply", Value: reply},
	}))
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a clock's network and display settings",
	Example: `  # Auto-discover
  clock-cfg status

  # By nickname, as JSON
  clock-cfg status --clock kitchen --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			status, err := c.GetStatus(ctx)
			if err != nil {
				return err
			}
			if statusJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			fmt.Fprint(cmd.OutOrStdout(), deviceconfig.FormatStatus(status))
			return nil
		})
	},
}

var timezoneCmd = &cobra.Command{
	Use:   "timezone [iana-name]",
	Short: "Set the clock's timezone",
	Long: `Set the clock's timezone to an IANA name such as Europe/Berlin.

Without an argument the default_timezone preference from the registry file
is used.`,
	Example: `  clock-cfg timezone Europe/Berlin --clock kitchen`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tz, err := timezoneArg(args)
		if err != nil {
			return err
		}
		if err := deviceconfig.ValidateTimezone(tz); err != nil {
			return err
		}
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			reply, err := c.SetTimezone(ctx, tz)
			if err != nil {
				return err
			}
			applied(cmd, t, "Timezone", tz, reply)
			return nil
		})
	},
}

func timezoneArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	reg, err := config.LoadRegistry()
	if err != nil {
		return "", err
	}
	if reg.Preferences.DefaultTimezone == "" {
		return "", errors.New("no timezone given and no default_timezone preference set")
	}
	return reg.Preferences.DefaultTimezone, nil
}

var brightnessCmd = &cobra.Command{
	Use:   "brightness <0-7>",
	Short: "Set the display brightness",
	Example: `  # Dimmest
  clock-cfg brightness 0

  # Brightest
  clock-cfg brightness 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid brightness %q: %w", args[0], err)
		}
		if err := deviceconfig.ValidateBrightness(level); err != nil {
			return err
		}
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			reply, err := c.SetBrightness(ctx, level)
			if err != nil {
				return err
			}
			applied(cmd, t, "Brightness", args[0], reply)
			return nil
		})
	},
}

var themeCmd = &cobra.Command{
	Use:     "theme <name>",
	Short:   "Set the display theme",
	Example: `  clock-cfg theme green`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, err := deviceconfig.ValidateTheme(args[0])
		if err != nil {
			return err
		}
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			reply, err := c.SetTheme(ctx, string(theme))
			if err != nil {
				return err
			}
			applied(cmd, t, "Theme", string(theme), reply)
			return nil
		})
	},
}

var hourFormatCmd = &cobra.Command{
	Use:     "hour-format <12h|24h>",
	Short:   "Switch between 12 and 24 hour display",
	Example: `  clock-cfg hour-format 12h`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := clock.ParseHourFormat(args[0])
		if err != nil {
			return err
		}
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			reply, err := c.SetHourFormat(ctx, f)
			if err != nil {
				return err
			}
			applied(cmd, t, "Hour format", f.String(), reply)
			return nil
		})
	},
}

var factoryResetCmd = &cobra.Command{
	Use:   "factory-reset",
	Short: "Erase the clock's Wi-Fi credentials and settings",
	Long: `Erase the stored Wi-Fi credentials, timezone and hour format.

The clock restarts into setup mode and raises the "esp-clock" access point
again.`,
	Example: `  clock-cfg factory-reset --clock kitchen`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClock(cmd, func(ctx context.Context, t target, c *deviceconfig.Client) error {
			if !resetYes && !ui.ConfirmFactoryReset(cmd.InOrStdin(), cmd.OutOrStdout(), t.addr()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			reply, err := c.FactoryReset(ctx)
			if err != nil {
				return err
			}
			if t.Instance != "" {
				if reg, err := config.LoadRegistry(); err == nil {
					reg.SetClockSSID(t.Instance, "")
					saveRegistry(reg, cmd.OutOrStdout())
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarning("Clock reset", []ui.Detail{
				{Key: "Clock", Value: t.addr()},
				{Key: "Reply", Value: reply},
				{Key: "Next", Value: "join the esp-clock network and run 'clock-cfg setup'"},
			}))
			return nil
		})
	},
}
