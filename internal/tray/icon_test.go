package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawIcon(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(drawIcon()))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())
	assert.Equal(t, iconSize, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "corners are transparent")
	r, g, b, _ := img.At(10, 15).RGBA()
	assert.Equal(t, [3]uint32{0xFFFF, 0xFFFF, 0xFFFF}, [3]uint32{r, g, b}, "thumbstick")
}

func TestWrapICO(t *testing.T) {
	pngData := drawIcon()
	ico := wrapICO(pngData)

	require.Len(t, ico, 22+len(pngData))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:4]), "icon type")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[4:6]), "one image")
	assert.Equal(t, uint32(len(pngData)), binary.LittleEndian.Uint32(ico[14:18]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(ico[18:22]))
	assert.Equal(t, pngData, ico[22:])
}

func TestGetIconIsStable(t *testing.T) {
	assert.NotEmpty(t, GetIcon())
	assert.Equal(t, GetIcon(), GetIcon())
}
