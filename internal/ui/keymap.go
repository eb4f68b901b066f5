package ui

// Key binding constants used in handleKey.
const (
	keyQuit      = "q"
	keyQuitUpper = "Q"
	keyCtrlC     = "ctrl+c"
	keyToggle    = " "
	keyReconnect = "r"
	keyExport    = "e"
	keyUp        = "up"
	keyDown      = "down"
)
