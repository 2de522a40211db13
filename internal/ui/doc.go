// Package ui renders clock-cfg terminal output with lipgloss: result boxes
// for completed or failed commands, and a typed confirmation before
// destructive operations such as a factory reset.
//
//	fmt.Println(ui.RenderSuccess("Credentials sent", []ui.Detail{
//	    {Key: "Network", Value: "home"},
//	}))
//
// Output is sized to the terminal width, between MinTerminalWidth and
// MaxContentWidth.
package ui
