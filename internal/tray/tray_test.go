package tray

import (
	"encoding/binary"
	"testing"
)

func TestIconHeader(t *testing.T) {
	icon := getIcon()

	if len(icon) != 6+16+40+iconSize*iconSize*4+iconSize*4 {
		t.Fatalf("Unexpected icon size %d", len(icon))
	}
	if binary.LittleEndian.Uint16(icon[2:4]) != 1 || binary.LittleEndian.Uint16(icon[4:6]) != 1 {
		t.Error("Expected ICO type 1 with one image")
	}
	if icon[6] != iconSize || icon[7] != iconSize {
		t.Errorf("Expected %dx%d entry, got %dx%d", iconSize, iconSize, icon[6], icon[7])
	}
	size := binary.LittleEndian.Uint32(icon[14:18])
	offset := binary.LittleEndian.Uint32(icon[18:22])
	if int(offset)+int(size) != len(icon) {
		t.Errorf("Directory entry does not cover the image: offset %d size %d len %d", offset, size, len(icon))
	}
}

func TestIconHasKeys(t *testing.T) {
	if iconPixel(0, 0)[3] != 0 {
		t.Error("Expected transparent corner")
	}
	if iconPixel(3, 6)[0] != 0xF0 {
		t.Error("Expected a key at (3,6)")
	}
	if iconPixel(8, 9)[0] != 0xF0 {
		t.Error("Expected spacebar at (8,9)")
	}
}

func TestMenuBookkeeping(t *testing.T) {
	tr := New("KeyboardSim")
	run := tr.AddMenuItem("Run default script", func() {})
	tr.AddSeparator()
	status := tr.AddLabel("Idle")
	quit := tr.AddMenuItem("Quit", func() {})

	if run != 0 || status != 2 || quit != 3 {
		t.Errorf("Unexpected ids run=%d status=%d quit=%d", run, status, quit)
	}
	if !tr.items[status].Disabled {
		t.Error("Expected label to be disabled")
	}

	tr.SetItemTitle(status, "Typing 1/3")
	if tr.items[status].Title != "Typing 1/3" {
		t.Errorf("Expected updated title, got %q", tr.items[status].Title)
	}
	tr.SetItemEnabled(run, false)
	if !tr.items[run].Disabled {
		t.Error("Expected run item to be disabled")
	}

	// Out of range and separators are ignored
	tr.SetItemTitle(1, "nope")
	tr.SetItemTitle(99, "nope")
}
