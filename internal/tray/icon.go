package tray

import (
	"bytes"
	"encoding/binary"
)

const iconSize = 16

// getIcon draws a small keyboard as a 16x16 32-bit ICO
func getIcon() []byte {
	const (
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
		headerSize = 40
		offset     = 6 + 16
	)

	var buf bytes.Buffer
	w := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }

	// ICONDIR
	w(uint16(0))
	w(uint16(1))
	w(uint16(1))
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	w(uint16(1))
	w(uint16(32))
	w(uint32(headerSize + pixelBytes + maskBytes))
	w(uint32(offset))
	// BITMAPINFOHEADER, height doubled for the AND mask
	w(uint32(headerSize))
	w(int32(iconSize))
	w(int32(iconSize * 2))
	w(uint16(1))
	w(uint16(32))
	w(uint32(0))
	w(uint32(pixelBytes))
	w([4]int32{})

	// Pixel rows are stored bottom-up as BGRA
	for y := iconSize - 1; y >= 0; y-- {
		for x := 0; x < iconSize; x++ {
			buf.Write(iconPixel(x, y))
		}
	}
	buf.Write(make([]byte, maskBytes))
	return buf.Bytes()
}

// iconPixel returns the BGRA color at (x, y), y from the top
func iconPixel(x, y int) []byte {
	transparent := []byte{0, 0, 0, 0}
	body := []byte{0x40, 0x40, 0x40, 0xFF}
	key := []byte{0xF0, 0xF0, 0xF0, 0xFF}

	if y < 4 || y > 11 || x < 1 || x > 14 {
		return transparent
	}
	if y == 4 || y == 11 || x == 1 || x == 14 {
		return body
	}
	// Spacebar row
	if y == 9 {
		if x >= 4 && x <= 11 {
			return key
		}
		return body
	}
	// Two rows of keys separated by body lines
	if (y == 6 || y == 7) && x%2 == 1 && x >= 3 && x <= 12 {
		return key
	}
	return body
}
