// Package frame handles device-frame artwork: loading the PNG, trimming
// transparent padding, locating the screen hole and deriving mask rasters.
package frame

import (
	"image"
	"image/draw"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// Image is a decoded frame raster with an alpha channel. It is never mutated
// in place; trimming and mask derivation produce new rasters.
type Image struct {
	Raster *image.NRGBA
}

// Load decodes a PNG file into a frame image.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open frame image %s", path)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode frame image %s", path)
	}

	return &Image{Raster: toNRGBA(img)}, nil
}

// Size returns the raster dimensions in pixels.
func (im *Image) Size() (w, h int) {
	b := im.Raster.Bounds()
	return b.Dx(), b.Dy()
}

// AspectRatio returns height divided by width.
func (im *Image) AspectRatio() float64 {
	w, h := im.Size()
	if w == 0 {
		return 1
	}
	return float64(h) / float64(w)
}

// Trim crops fully-transparent padding, returning a new image cropped to the
// minimal bounding box of pixels with alpha > 0. Frame artwork commonly ships
// with transparent margin that would otherwise corrupt every percentage
// computed against the image bounds, so this runs before any detection or
// placement math.
//
// A fully transparent image cannot be trimmed; the original is returned
// unchanged with ok=false.
func (im *Image) Trim() (trimmed *Image, ok bool) {
	b := im.Raster.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := im.Raster.Pix[(y-b.Min.Y)*im.Raster.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] > 0 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < minX || maxY < minY {
		return im, false
	}

	box := image.Rect(minX, minY, maxX+1, maxY+1)
	if box == b {
		return im, true
	}

	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), im.Raster, box.Min, draw.Src)
	return &Image{Raster: out}, true
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
