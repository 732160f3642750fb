package app

// HotkeyAction is what a hotkey stand-in signal triggers while watching.
type HotkeyAction int

const (
	HotkeyQuickSave HotkeyAction = iota
	HotkeyQuickRestore
)

func (h HotkeyAction) String() string {
	switch h {
	case HotkeyQuickSave:
		return "QuickSave"
	case HotkeyQuickRestore:
		return "QuickRestore"
	default:
		return "unknown"
	}
}
