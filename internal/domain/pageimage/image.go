// Package pageimage holds the rendered image of a document page.
//
// Images are kept PNG-encoded. PNG input is stored byte-for-byte, so a page
// loaded from disk is written back unchanged; JPEG, TIFF, BMP and WebP input
// is decoded and re-encoded as PNG.
package pageimage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Extension is the file extension pages are saved with.
const Extension = ".png"

// Image is one page image.
type Image struct {
	data   []byte
	width  int
	height int
}

// FromBytes creates an Image from encoded image data in any registered format.
func FromBytes(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if format == "png" {
		buf := make([]byte, len(data))
		copy(buf, data)
		return &Image{data: buf, width: cfg.Width, height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	return FromImage(img)
}

// FromImage encodes a decoded image as PNG.
func FromImage(img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	b := img.Bounds()
	return &Image{data: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}

// Load reads an image file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	img, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return img, nil
}

// Save writes the PNG data to path.
func (i *Image) Save(path string) error {
	if err := os.WriteFile(path, i.data, 0o600); err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return nil
}

// Bytes returns the PNG data. The slice must not be modified.
func (i *Image) Bytes() []byte { return i.data }

// Width returns the width in pixels.
func (i *Image) Width() int { return i.width }

// Height returns the height in pixels.
func (i *Image) Height() int { return i.height }

// Decode returns the decoded pixels.
func (i *Image) Decode() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(i.data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// MarshalJSON encodes the image as a base64 string.
func (i *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(i.data))
}

// UnmarshalJSON decodes a base64 string produced by MarshalJSON.
func (i *Image) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode image base64: %w", err)
	}
	img, err := FromBytes(raw)
	if err != nil {
		return err
	}
	*i = *img
	return nil
}
