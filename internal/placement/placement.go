// Package placement computes how source video pixels map into the output
// canvas. Everything here is pure geometry: no I/O, no shared state, safe to
// call from any goroutine.
package placement

import (
	"math"

	"github.com/nortelabs/demofyapp/internal/config"
)

// Size is a width/height pair in pixels.
type Size struct {
	W float64
	H float64
}

// Rect is an axis-aligned rectangle in pixels. Origin convention is the
// caller's; see FlipY for converting between top-left and bottom-left spaces.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Transform maps source-video pixel space into canvas pixel space: scale
// first, then translate.
type Transform struct {
	ScaleX     float64
	ScaleY     float64
	TranslateX float64
	TranslateY float64
}

// ScaledSize returns the source size after the transform's scaling.
func (t Transform) ScaledSize(src Size) Size {
	return Size{W: src.W * t.ScaleX, H: src.H * t.ScaleY}
}

// UprightSize resolves a source's orientation-correcting rotation into its
// upright dimensions. Portrait captures commonly report landscape pixel
// dimensions plus a 90° or 270° rotation; all fit math must use the upright
// size or the aspect ratio comes out wrong.
func UprightSize(src Size, rotationDegrees int) Size {
	r := ((rotationDegrees % 360) + 360) % 360
	if r == 90 || r == 270 {
		return Size{W: src.H, H: src.W}
	}
	return src
}

// Calculate produces the transform that places an upright source of the given
// size inside target according to the fit mode, zoom and offset.
//
// Zoom is clamped to config.MinZoom and applies in every mode, including
// Stretch. Offset is normalized: ±1 displaces the content by half the target
// dimension on that axis, so the content center reaches the target edge.
func Calculate(src Size, rotationDegrees int, target Rect, mode config.FitMode, zoom float64, off config.Offset) Transform {
	up := UprightSize(src, rotationDegrees)
	if up.W <= 0 || up.H <= 0 || target.W <= 0 || target.H <= 0 {
		return Transform{ScaleX: 1, ScaleY: 1, TranslateX: target.X, TranslateY: target.Y}
	}

	if zoom < config.MinZoom {
		zoom = config.MinZoom
	}

	var scaleX, scaleY float64
	switch mode {
	case config.FitModeFill:
		s := math.Max(target.W/up.W, target.H/up.H) * zoom
		scaleX, scaleY = s, s
	case config.FitModeStretch:
		scaleX = target.W / up.W * zoom
		scaleY = target.H / up.H * zoom
	default: // fit
		s := math.Min(target.W/up.W, target.H/up.H) * zoom
		scaleX, scaleY = s, s
	}

	scaledW := up.W * scaleX
	scaledH := up.H * scaleY

	// Center inside the target, then apply the normalized offset.
	tx := target.X + (target.W-scaledW)/2 + off.X*(target.W/2)
	ty := target.Y + (target.H-scaledH)/2 + off.Y*(target.H/2)

	return Transform{
		ScaleX:     scaleX,
		ScaleY:     scaleY,
		TranslateX: tx,
		TranslateY: ty,
	}
}

// RectFromPercent converts a percentage-based screen rect to canvas pixels,
// top-left origin.
func RectFromPercent(sr config.ScreenRect, canvasW, canvasH float64) Rect {
	return Rect{
		X: sr.X / 100 * canvasW,
		Y: sr.Y / 100 * canvasH,
		W: sr.W / 100 * canvasW,
		H: sr.H / 100 * canvasH,
	}
}

// FlipY converts a top-left-origin rect into the bottom-left-origin pixel
// space that media-composition encoders commonly use. Skipping this step
// composites the video vertically mirrored or displaced, so it lives in its
// own function with its own tests.
func FlipY(r Rect, canvasH float64) Rect {
	return Rect{
		X: r.X,
		Y: canvasH - r.Y - r.H,
		W: r.W,
		H: r.H,
	}
}

// AspectFit returns the rect (top-left origin, centered) that fits content of
// the given size inside a container while preserving the content aspect ratio.
// Used for placing frame artwork over the full canvas.
func AspectFit(content Size, container Size) Rect {
	if content.W <= 0 || content.H <= 0 || container.W <= 0 || container.H <= 0 {
		return Rect{}
	}
	s := math.Min(container.W/content.W, container.H/content.H)
	w := content.W * s
	h := content.H * s
	return Rect{
		X: (container.W - w) / 2,
		Y: (container.H - h) / 2,
		W: w,
		H: h,
	}
}
