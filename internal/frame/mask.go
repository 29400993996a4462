package frame

import (
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"

	"github.com/nortelabs/demofyapp/internal/placement"
)

// AlphaMask derives the video layer's clipping mask by inverting the frame's
// alpha channel: the screen hole becomes fully opaque (white), the frame body
// fully transparent (black). Unlike a fitted rounded rectangle, this follows
// the artwork's true screen silhouette, including notches and irregular
// cutouts.
func (im *Image) AlphaMask() *image.Gray {
	b := im.Raster.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		srcRow := im.Raster.Pix[y*im.Raster.Stride:]
		dstRow := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			dstRow[x] = 255 - srcRow[x*4+3]
		}
	}
	return mask
}

// RoundedRectMask renders the fallback clipping mask: a white rounded
// rectangle at rect (top-left origin, canvas pixels) on a black canvas of the
// given size. Used when no frame artwork is available to derive an alpha mask
// from.
func RoundedRectMask(canvasW, canvasH int, rect placement.Rect, radius float64) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, canvasW, canvasH))

	maxRadius := rect.W / 2
	if rect.H/2 < maxRadius {
		maxRadius = rect.H / 2
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	if radius < 0 {
		radius = 0
	}

	for y := 0; y < canvasH; y++ {
		fy := float64(y) + 0.5
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < canvasW; x++ {
			fx := float64(x) + 0.5
			if insideRoundedRect(fx, fy, rect, radius) {
				row[x] = 255
			}
		}
	}
	return mask
}

func insideRoundedRect(x, y float64, r placement.Rect, radius float64) bool {
	if x < r.X || x > r.X+r.W || y < r.Y || y > r.Y+r.H {
		return false
	}
	if radius <= 0 {
		return true
	}

	// Clamp to the nearest corner-circle center; points in the straight edge
	// regions clamp onto themselves.
	cx := clamp(x, r.X+radius, r.X+r.W-radius)
	cy := clamp(y, r.Y+radius, r.Y+r.H-radius)
	dx := x - cx
	dy := y - cy
	return dx*dx+dy*dy <= radius*radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WritePNG encodes an image to a PNG file, used to hand generated masks and
// artwork rasters to the encoder.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
