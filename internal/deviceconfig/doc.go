// Package deviceconfig is the HTTP client clock-cfg uses to talk to a clock.
//
// A clock serves one of two portals. While it has no network it runs the
// captive portal on its own access point (192.168.71.1), which accepts Wi-Fi
// credentials on /set_config. Once joined it runs the web portal, which
// reports status and changes the timezone, brightness, theme and hour format.
//
// # Usage Example
//
//	client := deviceconfig.NewClient(deviceconfig.DefaultSetupHost, 80)
//	msg, err := client.SubmitCredentials(ctx, wifi.Credentials{SSID: "home", Password: "secret123"})
//	if err != nil {
//	    fmt.Println(deviceconfig.GetTroubleshootingHint(err))
//	    return err
//	}
//	fmt.Println(msg)
//
// # Error Handling
//
// Every failure is a *DeviceError classified by ErrorType. Timeouts, refused
// connections and 5xx replies are retried with exponential backoff; other
// errors are returned at once. The captive portal answers undecodable
// submissions with 200 "JSON error", reported as ErrTypeRejected.
package deviceconfig
