package fetchimg

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// probe reads the image header for its format and dimensions. Unknown or
// corrupt data yields zero values.
func probe(data []byte) (format string, width, height int) {
	if len(data) == 0 {
		return "", 0, 0
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0
	}
	return format, cfg.Width, cfg.Height
}
