// Package preview computes the interactive preview geometry: the same
// placement, masking and layering decisions the export pipeline makes, minus
// trimming and encoding, cheap enough to re-run on every parameter change.
package preview

import (
	"math"

	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/frame"
	"github.com/nortelabs/demofyapp/internal/placement"
)

// Layout describes everything a playback surface needs to draw one preview
// pass. All rects are in viewport pixels, top-left origin.
type Layout struct {
	// Canvas is the composition canvas aspect-fitted into the viewport.
	Canvas placement.Rect
	// Screen is the screen region within the viewport.
	Screen placement.Rect
	// Video is the placed video content rect within the viewport; it can
	// exceed Screen (fill/zoom) and must be clipped to Screen when drawn.
	Video placement.Rect
	// FrameArtwork is where the frame image is drawn, aspect-fit over Canvas.
	FrameArtwork placement.Rect
	// CornerRadius applies to the screen clip when no frame alpha mask exists.
	CornerRadius float64
	// UseAlphaMask tells the surface to clip the video with the frame's
	// inverted alpha rather than the rounded rectangle.
	UseAlphaMask bool
}

// Renderer derives preview layouts. It holds the immutable frame image
// currently selected; geometry is recomputed per call, so a renderer is safe
// to share across layout passes.
type Renderer struct {
	frame *frame.Image // trimmed; nil when composing without artwork
}

// NewRenderer creates a preview renderer for the given frame image. The image
// is trimmed once here, mirroring the export pipeline's canvas policy.
func NewRenderer(fr *frame.Image) *Renderer {
	if fr != nil {
		fr, _ = fr.Trim()
	}
	return &Renderer{frame: fr}
}

// Frame returns the trimmed frame image, or nil.
func (r *Renderer) Frame() *frame.Image {
	return r.frame
}

// canvasAspect mirrors the export canvas policy: the trimmed artwork's aspect
// ratio when a frame is set, otherwise the default device aspect, so preview
// and export never diverge in framing.
func (r *Renderer) canvasAspect() float64 {
	if r.frame != nil {
		return r.frame.AspectRatio()
	}
	return config.DefaultCanvasAspect
}

// Layout computes the preview geometry for one video source inside a
// viewport. sourceW/sourceH are the video's natural pixel size and rotation
// its orientation-correcting transform, exactly as probed for export.
func (r *Renderer) Layout(cfg config.CompositionConfig, sourceW, sourceH, rotation int, viewportW, viewportH float64) Layout {
	aspect := r.canvasAspect()
	canvas := placement.AspectFit(
		placement.Size{W: 1, H: aspect},
		placement.Size{W: viewportW, H: viewportH},
	)

	screenPct := cfg.Screen.Clamped()
	if screenPct.W == 0 || screenPct.H == 0 {
		screenPct = config.FullCanvas
	}

	screen := placement.RectFromPercent(screenPct, canvas.W, canvas.H)
	screen.X += canvas.X
	screen.Y += canvas.Y

	zoom := cfg.Zoom
	if zoom == 0 {
		zoom = 1.0
	}

	transform := placement.Calculate(
		placement.Size{W: float64(sourceW), H: float64(sourceH)},
		rotation,
		screen,
		cfg.Fit,
		zoom,
		cfg.Offset,
	)

	upright := placement.UprightSize(placement.Size{W: float64(sourceW), H: float64(sourceH)}, rotation)
	scaled := transform.ScaledSize(upright)

	layout := Layout{
		Canvas: canvas,
		Screen: screen,
		Video: placement.Rect{
			X: transform.TranslateX,
			Y: transform.TranslateY,
			W: scaled.W,
			H: scaled.H,
		},
		UseAlphaMask: r.frame != nil,
		CornerRadius: config.CornerRadiusFraction * math.Min(screen.W, screen.H),
	}
	if r.frame != nil {
		fw, fh := r.frame.Size()
		fit := placement.AspectFit(
			placement.Size{W: float64(fw), H: float64(fh)},
			placement.Size{W: canvas.W, H: canvas.H},
		)
		fit.X += canvas.X
		fit.Y += canvas.Y
		layout.FrameArtwork = fit
	}

	return layout
}
