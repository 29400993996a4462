package frame

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/nortelabs/demofyapp/internal/config"
)

// Detect locates the contiguous fully-transparent region in the middle of the
// frame artwork that represents the device screen and returns it as a
// percentage-based rect. The caller must pass an already-trimmed image.
//
// Returns ok=false when the image contains no fully-transparent pixel at all;
// callers keep whatever screen rect was previously configured.
func Detect(im *Image) (config.ScreenRect, bool) {
	work := downsample(im.Raster, config.DetectWorkingSize)
	b := work.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return config.ScreenRect{}, false
	}

	seed, found := findSeed(work)
	if !found {
		return config.ScreenRect{}, false
	}

	box := floodFill(work, seed)

	// Pixel bounds to percentages of the working image. Percentages are
	// resolution independent, so they hold against the full-resolution
	// trimmed image as well.
	sr := config.ScreenRect{
		X: float64(box.Min.X) / float64(w) * 100,
		Y: float64(box.Min.Y) / float64(h) * 100,
		W: float64(box.Dx()) / float64(w) * 100,
		H: float64(box.Dy()) / float64(h) * 100,
	}

	// Inset slightly so anti-aliased border pixels, which the strict alpha==0
	// test skips, never let video bleed past the true screen edge.
	sr.X += config.DetectInsetPercent
	sr.Y += config.DetectInsetPercent
	sr.W -= 2 * config.DetectInsetPercent
	sr.H -= 2 * config.DetectInsetPercent

	return sr.Clamped(), true
}

// downsample scales the raster so its longest edge is at most maxEdge pixels.
// Detection cost is bounded this way regardless of the source resolution; the
// result is expressed in percentages so full resolution is never needed.
func downsample(src *image.NRGBA, maxEdge int) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	var dw, dh int
	if w >= h {
		dw = maxEdge
		dh = h * maxEdge / w
	} else {
		dh = maxEdge
		dw = w * maxEdge / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	// Nearest neighbor keeps alpha values crisp; an interpolating scaler would
	// blend hole-boundary alpha and erode the strict alpha==0 region.
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// findSeed searches outward from the image center in expanding square rings
// for the first fully-transparent pixel. Starting at the center biases the
// search toward the screen hole and away from stray transparent pixels near
// the image edges.
func findSeed(img *image.NRGBA) (image.Point, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := w/2, h/2

	maxRadius := w
	if h > maxRadius {
		maxRadius = h
	}

	for r := 0; r <= maxRadius; r++ {
		for y := cy - r; y <= cy+r; y++ {
			if y < 0 || y >= h {
				continue
			}
			for x := cx - r; x <= cx+r; x++ {
				if x < 0 || x >= w {
					continue
				}
				// Ring perimeter only; the interior was covered already.
				if r > 0 && x != cx-r && x != cx+r && y != cy-r && y != cy+r {
					continue
				}
				if alphaAt(img, x, y) == 0 {
					return image.Point{X: x, Y: y}, true
				}
			}
		}
	}
	return image.Point{}, false
}

// floodFill runs a stack-based 4-connected fill over alpha==0 pixels reachable
// from seed and returns their bounding box. An explicit stack avoids
// recursion-depth issues on large holes.
func floodFill(img *image.NRGBA, seed image.Point) image.Rectangle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	visited := make([]bool, w*h)
	minX, minY := seed.X, seed.Y
	maxX, maxY := seed.X, seed.Y

	stack := []image.Point{seed}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		idx := p.Y*w + p.X
		if visited[idx] || alphaAt(img, p.X, p.Y) != 0 {
			continue
		}
		visited[idx] = true

		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[y*img.Stride+x*4+3]
}
