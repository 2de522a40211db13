// Package netmode manages the clock's single Wi-Fi radio in either access
// point or station mode.
//
// A Mode is a handle over a shared Radio. Handles move through
//
//	stopped -> started -> connected | failed -> stopped
//
// and at most one handle owns the radio at a time: starting a second handle
// while another is running fails with ErrRadioBusy. The bootstrap code
// stops the access point before it creates a station handle and vice versa.
//
// # Drivers
//
// The hardware boundary is the Driver interface:
//
//   - SimDriver keeps everything in memory and joins only networks from its
//     known-networks list. It is used in development and in tests.
//   - NMCLIDriver (Linux) drives NetworkManager through the nmcli command.
//
// Select a driver with NewDriver using the radio section of the daemon
// configuration:
//
//	drv, err := netmode.NewDriver(cfg.Radio.Driver, cfg.Radio.Interface, cfg.Radio.KnownNetworks)
//	radio := netmode.NewRadio(drv)
//	ap := netmode.NewAccessPoint(radio, apConfig)
//	if err := ap.Start(ctx); err != nil {
//	    return err
//	}
//	if err := ap.WaitUp(ctx); err != nil {
//	    return err
//	}
package netmode
