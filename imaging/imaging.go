// Package imaging prepares admin uploads before they are forwarded to the
// backend.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // png decoder
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

const jpegQuality = 85

// Prepared is an upload ready to be sent
type Prepared struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Prepare decodes a png or jpeg image and re-encodes it as JPEG, scaling it
// down to maxWidth when wider. Images already within the limit keep their
// size. maxWidth <= 0 disables scaling.
func Prepare(name string, data []byte, maxWidth int) (*Prepared, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrapf(err, "encode %s", name)
	}

	return &Prepared{
		Name:        jpegName(name),
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func jpegName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "upload"
	}
	return base + ".jpg"
}
