package vidra

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

func readFile(path string) ([]byte, error) { return os.ReadFile(path) }

// DecodeImageFile decodes a still image from disk into a FrameBuffer,
// dispatching on file extension to the matching decoder. golang.org/x/image
// supplies the formats the standard library doesn't (bmp, tiff, decode-only
// webp); image/{png,jpeg,gif} cover the rest.
func DecodeImageFile(path string) (*FrameBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	case ".bmp":
		img, err = bmp.Decode(f)
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	case ".webp":
		img, err = webp.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return imageToFrameBuffer(img), nil
}

// imageToFrameBuffer converts any image.Image to a straight-alpha RGBA8 FrameBuffer.
func imageToFrameBuffer(img image.Image) *FrameBuffer {
	b := img.Bounds()
	fb := NewFrameBuffer(b.Dx(), b.Dy())
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	straightenAlpha(rgba)
	copy(fb.Pix, rgba.Pix)
	return fb
}

// straightenAlpha converts image.RGBA's premultiplied-alpha storage (which
// draw.Draw always produces) back to the straight alpha this engine uses
// uniformly for FrameBuffer.
func straightenAlpha(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a == 0 || a == 255 {
			continue
		}
		img.Pix[i] = unpremultiply(img.Pix[i], a)
		img.Pix[i+1] = unpremultiply(img.Pix[i+1], a)
		img.Pix[i+2] = unpremultiply(img.Pix[i+2], a)
	}
}

func unpremultiply(c, a uint8) uint8 {
	v := int(c) * 255 / int(a)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func newRGBAImage(w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func solidUniform(c Color) *image.Uniform {
	r, g, b, a := c.RGBA8()
	return image.NewUniform(color.NRGBA{R: r, G: g, B: b, A: a})
}

func rgbaToFrameBuffer(img *image.RGBA) *FrameBuffer {
	b := img.Bounds()
	fb := NewFrameBuffer(b.Dx(), b.Dy())
	straightenAlpha(img)
	copy(fb.Pix, img.Pix)
	return fb
}

// EncodeImageFile writes fb to path as a PNG, creating or truncating the
// file. FrameBuffer's straight-alpha Pix layout matches image.NRGBA's
// directly, so no premultiply/unpremultiply round trip is needed here.
func EncodeImageFile(path string, fb *FrameBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	img := &image.NRGBA{
		Pix:    fb.Pix,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
