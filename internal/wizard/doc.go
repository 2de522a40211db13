// Package wizard is the interactive `clock-cfg setup` flow.
//
// The wizard asks for the home network SSID and password, submits them to a
// clock's captive portal while a spinner runs, and reports the result. A
// failed submission can be retried or edited without retyping everything.
//
// The model only depends on a Submitter, so tests drive it with a fake and
// feed key messages straight into Update.
package wizard
