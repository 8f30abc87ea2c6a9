package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jrsteele09/go-merch-storefront/imaging"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepare(t *testing.T) {
	t.Run("oversized image is scaled down", func(t *testing.T) {
		out, err := imaging.Prepare("banner.png", pngOf(t, 400, 200), 100)
		require.NoError(t, err)
		require.Equal(t, "banner.jpg", out.Name)
		require.Equal(t, "image/jpeg", out.ContentType)
		require.Equal(t, 100, out.Width)
		require.Equal(t, 50, out.Height)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
		require.NoError(t, err)
		require.Equal(t, 100, cfg.Width)
	})

	t.Run("small image keeps its size", func(t *testing.T) {
		out, err := imaging.Prepare("icon.png", pngOf(t, 40, 30), 100)
		require.NoError(t, err)
		require.Equal(t, 40, out.Width)
		require.Equal(t, 30, out.Height)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := imaging.Prepare("notes.txt", []byte("hello"), 100)
		require.Error(t, err)
	})
}
