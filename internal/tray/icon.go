package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"sync"
)

const iconSize = 32

var (
	iconOnce sync.Once
	iconData []byte
)

// GetIcon returns the tray icon: ICO on Windows, PNG elsewhere.
func GetIcon() []byte {
	iconOnce.Do(func() {
		pngData := drawIcon()
		if runtime.GOOS == "windows" {
			iconData = wrapICO(pngData)
		} else {
			iconData = pngData
		}
	})
	return iconData
}

// drawIcon renders a pad body with two thumbsticks.
func drawIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	body := color.NRGBA{0x00, 0x78, 0xD4, 0xFF}
	stick := color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}

	for y := 8; y < 24; y++ {
		for x := 2; x < iconSize-2; x++ {
			img.Set(x, y, body)
		}
	}
	for _, cx := range []int{10, 22} {
		for y := 12; y < 18; y++ {
			for x := cx - 3; x < cx+3; x++ {
				if (x-cx)*(x-cx)+(y-15)*(y-15) <= 9 {
					img.Set(x, y, stick)
				}
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds a PNG image in a single-entry ICO container.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{iconSize, iconSize, 0, 0, 1, 32, uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}
