//go:build unix

package app

import (
	"os"
	"syscall"
)

// hotkeySignals maps SIGUSR1 to a quicksave and SIGUSR2 to a quick restore,
// so a desktop shortcut can run `pkill -USR1 savekeep`.
func hotkeySignals() map[os.Signal]HotkeyAction {
	return map[os.Signal]HotkeyAction{
		syscall.SIGUSR1: HotkeyQuickSave,
		syscall.SIGUSR2: HotkeyQuickRestore,
	}
}
