//go:build !unix

package app

import "os"

// hotkeySignals is empty where SIGUSR1/SIGUSR2 do not exist.
func hotkeySignals() map[os.Signal]HotkeyAction {
	return nil
}
