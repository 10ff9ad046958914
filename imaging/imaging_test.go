package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// testScreen draws a small opaque image with a few distinct pixels.
func testScreen() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 3, color.RGBA{G: 200, B: byte(x * 30), A: 255})
	}

	return img
}

func bmpPayload(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testScreen()))

	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", PNG, false},
		{"PNG", PNG, false},
		{"Bmp", BMP, false},
		{" bmp ", BMP, false},
		{"jpg", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Ext(t *testing.T) {
	assert.Equal(t, ".png", PNG.Ext())
	assert.Equal(t, ".bmp", BMP.Ext())
}

func TestEncode_BMPToPNG(t *testing.T) {
	out, err := Encode(bmpPayload(t), PNG)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, testScreen().Bounds(), img.Bounds())

	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
}

func TestEncode_BMPToBMP(t *testing.T) {
	out, err := Encode(bmpPayload(t), BMP)
	require.NoError(t, err)

	_, kind, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "bmp", kind)
}

func TestEncode_Garbage(t *testing.T) {
	_, err := Encode([]byte("not an image\x00\n"), PNG)
	assert.ErrorIs(t, err, ErrImageDecode)
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(bmpPayload(t), Format("gif"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileSaver_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	path := filepath.Join(dir, "DS2202E_DS2E1_2026-10-19_10.00.00.png")

	require.NoError(t, NewFileSaver().Save(path, bmpPayload(t), PNG))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, kind, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "png", kind)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSaver_SaveRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	err := NewFileSaver().Save(path, []byte("#9000000004abcd"), PNG)
	require.ErrorIs(t, err, ErrImageDecode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file is written when decoding fails")
}
