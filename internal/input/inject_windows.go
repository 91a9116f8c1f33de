//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of key injection using SendInput

const (
	inputKeyboard        = 1
	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procSendInput  = user32.NewProc("SendInput")
	procVkKeyScanW = user32.NewProc("VkKeyScanW")
)

// Virtual-key codes for the named keys
var namedVirtualKeys = map[Key]uint16{
	KeyUp:    0x26, // VK_UP
	KeyDown:  0x28, // VK_DOWN
	KeyLeft:  0x25, // VK_LEFT
	KeyRight: 0x27, // VK_RIGHT
	KeyEnter: 0x0D, // VK_RETURN
	KeyShift: 0x10, // VK_SHIFT
	KeyCtrl:  0x11, // VK_CONTROL
	KeyAlt:   0x12, // VK_MENU
	KeySpace: 0x20, // VK_SPACE
}

// Arrow keys live on the extended part of the keyboard
var extendedKeys = map[Key]bool{
	KeyUp: true, KeyDown: true, KeyLeft: true, KeyRight: true,
}

// keybdInput mirrors KEYBDINPUT
type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// keyboardInput mirrors INPUT with the keyboard member of the union; the
// padding covers the larger MOUSEINPUT member.
type keyboardInput struct {
	Type    uint32
	Ki      keybdInput
	Padding [8]byte
}

var _ InputInjector = (*Injector)(nil)

// Injector delivers key events with SendInput
type Injector struct{}

// NewInjector checks that SendInput is callable in this session
func NewInjector() (*Injector, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("SendInput unavailable: %w", err)
	}
	if err := procVkKeyScanW.Find(); err != nil {
		return nil, fmt.Errorf("VkKeyScanW unavailable: %w", err)
	}
	return &Injector{}, nil
}

// virtualKeyFor resolves a logical key to a virtual-key code
func virtualKeyFor(key Key) (uint16, bool) {
	if vk, ok := namedVirtualKeys[key]; ok {
		return vk, true
	}
	c, ok := key.Char()
	if !ok {
		return 0, false
	}
	switch {
	case c >= 'a' && c <= 'z':
		return uint16(c - 'a' + 'A'), true
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return uint16(c), true
	}

	// VkKeyScanW returns -1 when the layout has no key for the character
	ret, _, _ := procVkKeyScanW.Call(uintptr(c))
	if int16(ret) == -1 {
		return 0, false
	}
	return uint16(ret & 0xFF), true
}

// InjectKey sends a single key transition
func (i *Injector) InjectKey(key Key, pressed bool) error {
	vk, ok := virtualKeyFor(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoKeyMapping, key)
	}

	in := keyboardInput{
		Type: inputKeyboard,
		Ki:   keybdInput{WVk: vk},
	}
	if extendedKeys[key] {
		in.Ki.DwFlags |= keyeventfExtendedKey
	}
	if !pressed {
		in.Ki.DwFlags |= keyeventfKeyUp
	}

	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %v", err)
	}
	return nil
}

// Close is a no-op; SendInput holds no handle
func (i *Injector) Close() error {
	return nil
}
