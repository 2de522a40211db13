package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/espclock/espclock/internal/config"
	"github.com/espclock/espclock/internal/deviceconfig"
	"github.com/espclock/espclock/internal/discovery"
	"github.com/espclock/espclock/internal/ui"
	"github.com/espclock/espclock/internal/wifi"
	"github.com/espclock/espclock/internal/wizard"
)

var (
	wifiSSID          string
	wifiPasswordStdin bool
)

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(wifiCmd)

	setupCmd.Flags().StringVar(&wifiSSID, "ssid", "", "Pre-fill the network name")

	wifiCmd.Flags().StringVar(&wifiSSID, "ssid", "", "Network name (required)")
	wifiCmd.Flags().BoolVar(&wifiPasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	_ = wifiCmd.MarkFlagRequired("ssid")
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive Wi-Fi setup wizard",
	Long: `Launch an interactive wizard that sends Wi-Fi credentials to a clock in
setup mode.

Join the "esp-clock" network first. The wizard submits to the captive portal
at 192.168.71.1; the clock then restarts and joins the network you entered.`,
	Example: `  # Launch the wizard (default command)
  clock-cfg

  # Pre-fill the network name
  clock-cfg setup --ssid HomeNetwork`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	t := setupTarget()

	res, err := wizard.Run(cmd.Context(), t.client(), t.addr(), wifiSSID, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !res.Submitted {
		return nil
	}

	rememberSSID(res.SSID, cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Credentials sent", []ui.Detail{
		{Key: "Network", Value: res.SSID},
		{Key: "Clock", Value: t.addr()},
		{Key: "Next", Value: "reconnect to " + res.SSID + " and run 'clock-cfg scan'"},
	}))
	return nil
}

var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "Send Wi-Fi credentials to a clock in setup mode",
	Long: `Submit Wi-Fi credentials to the captive portal without the wizard.

The password is prompted for without echo. Use --password-stdin to pipe it
in from a script.`,
	Example: `  # Prompt for the password
  clock-cfg wifi --ssid HomeNetwork

  # Scripted
  echo "$WIFI_PASSWORD" | clock-cfg wifi --ssid HomeNetwork --password-stdin`,
	RunE: runWifi,
}

func runWifi(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	password, err := readPassword(cmd.InOrStdin(), out, wifiPasswordStdin)
	if err != nil {
		return err
	}
	creds := wifi.Credentials{SSID: wifiSSID, Password: password}
	if err := deviceconfig.ValidateCredentials(creds); err != nil {
		return err
	}

	t := setupTarget()
	fmt.Fprintf(out, "Sending credentials for %q to %s...\n", creds.SSID, t.addr())

	reply, err := t.client().SubmitCredentials(cmd.Context(), creds)
	if err != nil {
		fmt.Fprintln(out, ui.RenderFailure("Setup failed", err, deviceconfig.GetTroubleshootingHint(err)))
		return errors.New(deviceconfig.GetShortErrorMessage(err))
	}

	rememberSSID(creds.SSID, out)
	fmt.Fprintln(out, ui.RenderSuccess("Credentials sent", []ui.Detail{
		{Key: "Network", Value: creds.SSID},
		{Key: "Clock", Value: t.addr()},
		{Key: "Reply", Value: reply},
	}))
	return nil
}

// readPassword prompts without echo on a terminal, otherwise reads one line.
func readPassword(in io.Reader, out io.Writer, fromStdin bool) (string, error) {
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password (empty for an open network): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// rememberSSID records the network on the registry entry of the clock
// being set up: the one named by --clock, else the default instance.
func rememberSSID(ssid string, out io.Writer) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return
	}
	instance := discovery.InstancePrefix
	if clockTarget != "" {
		if name, _, ok := reg.FindByNickname(clockTarget); ok {
			instance = name
		} else if reg.GetClock(clockTarget) != nil {
			instance = clockTarget
		}
	}
	if reg.GetClock(instance) == nil {
		return
	}
	reg.SetClockSSID(instance, ssid)
	saveRegistry(reg, out)
}
