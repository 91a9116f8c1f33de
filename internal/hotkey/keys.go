package hotkey

// Virtual key codes reported by the global hook (uiohook VC_* values)
var keyNames = map[uint16]string{
	0x0001: "ESC",
	0x003B: "F1", 0x003C: "F2", 0x003D: "F3", 0x003E: "F4",
	0x003F: "F5", 0x0040: "F6", 0x0041: "F7", 0x0042: "F8",
	0x0043: "F9", 0x0044: "F10", 0x0057: "F11", 0x0058: "F12",

	0x0002: "1", 0x0003: "2", 0x0004: "3", 0x0005: "4", 0x0006: "5",
	0x0007: "6", 0x0008: "7", 0x0009: "8", 0x000A: "9", 0x000B: "0",

	0x0010: "Q", 0x0011: "W", 0x0012: "E", 0x0013: "R", 0x0014: "T",
	0x0015: "Y", 0x0016: "U", 0x0017: "I", 0x0018: "O", 0x0019: "P",
	0x001E: "A", 0x001F: "S", 0x0020: "D", 0x0021: "F", 0x0022: "G",
	0x0023: "H", 0x0024: "J", 0x0025: "K", 0x0026: "L",
	0x002C: "Z", 0x002D: "X", 0x002E: "C", 0x002F: "V", 0x0030: "B",
	0x0031: "N", 0x0032: "M",

	0x000F: "TAB",
	0x001C: "ENTER",
	0x0039: "SPACE",
	0x0E1C: "ENTER",

	0x002A: "SHIFT", 0x0036: "SHIFT",
	0x001D: "CTRL", 0x0E1D: "CTRL",
	0x0038: "ALT", 0x0E38: "ALT",
	0x0E5B: "META", 0x0E5C: "META",
}

var names = func() map[string]bool {
	out := make(map[string]bool, len(keyNames))
	for _, n := range keyNames {
		out[n] = true
	}
	return out
}()

// KeyName returns the hotkey part name for a hook keycode. Left and right
// modifiers share one name.
func KeyName(code uint16) (string, bool) {
	name, ok := keyNames[code]
	return name, ok
}

func knownName(name string) bool {
	return names[name]
}
