//go:build linux

package input

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// X11 implementation of key injection using the XTEST extension

// X11 keysyms for the named keys
var namedKeysyms = map[Key]xproto.Keysym{
	KeyUp:    0xff52, // XK_Up
	KeyDown:  0xff54, // XK_Down
	KeyLeft:  0xff51, // XK_Left
	KeyRight: 0xff53, // XK_Right
	KeyEnter: 0xff0d, // XK_Return
	KeyShift: 0xffe1, // XK_Shift_L
	KeyCtrl:  0xffe3, // XK_Control_L
	KeyAlt:   0xffe9, // XK_Alt_L
	KeySpace: 0x0020, // XK_space
}

var _ InputInjector = (*Injector)(nil)

// Injector delivers key events to the X server
type Injector struct {
	conn   *xgb.Conn
	root   xproto.Window
	keymap map[xproto.Keysym]xproto.Keycode
}

// NewInjector connects to $DISPLAY and loads the keyboard mapping.
// It fails when no X server or no XTEST extension is available.
func NewInjector() (*Injector, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("could not open X display: %w", err)
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("XTEST extension unavailable: %w", err)
	}

	setup := xproto.Setup(conn)
	keymap, err := loadKeymap(conn, setup)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read keyboard mapping: %w", err)
	}

	return &Injector{
		conn:   conn,
		root:   setup.DefaultScreen(conn).Root,
		keymap: keymap,
	}, nil
}

// loadKeymap builds a keysym to keycode table. The first keycode carrying a
// keysym wins, matching XKeysymToKeycode.
func loadKeymap(conn *xgb.Conn, setup *xproto.SetupInfo) (map[xproto.Keysym]xproto.Keycode, error) {
	first := setup.MinKeycode
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)

	reply, err := xproto.GetKeyboardMapping(conn, first, count).Reply()
	if err != nil {
		return nil, err
	}

	per := int(reply.KeysymsPerKeycode)
	keymap := make(map[xproto.Keysym]xproto.Keycode)
	for i := 0; i < int(count); i++ {
		for j := 0; j < per; j++ {
			sym := reply.Keysyms[i*per+j]
			if sym == 0 {
				continue
			}
			if _, ok := keymap[sym]; !ok {
				keymap[sym] = xproto.Keycode(int(first) + i)
			}
		}
	}
	return keymap, nil
}

// keysymFor resolves a logical key. Printable Latin-1 characters share their
// code point with their keysym.
func keysymFor(key Key) (xproto.Keysym, bool) {
	if sym, ok := namedKeysyms[key]; ok {
		return sym, true
	}
	if c, ok := key.Char(); ok && c >= 0x20 && c <= 0x7e {
		return xproto.Keysym(c), true
	}
	return 0, false
}

// InjectKey sends a fake key press or release and waits for the server to
// process it
func (i *Injector) InjectKey(key Key, pressed bool) error {
	sym, ok := keysymFor(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoKeyMapping, key)
	}
	code, ok := i.keymap[sym]
	if !ok {
		return fmt.Errorf("%w: keysym 0x%x", ErrNoKeyMapping, uint32(sym))
	}

	eventType := byte(xproto.KeyRelease)
	if pressed {
		eventType = byte(xproto.KeyPress)
	}
	return xtest.FakeInputChecked(i.conn, eventType, byte(code), xproto.TimeCurrentTime, i.root, 0, 0, 0).Check()
}

// Close releases the X connection
func (i *Injector) Close() error {
	i.conn.Close()
	return nil
}
