package compositor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/ffmpeg"
	"github.com/nortelabs/demofyapp/internal/frame"
	"github.com/nortelabs/demofyapp/internal/placement"
)

// Plan is the fully resolved geometry of one composition: canvas dimensions,
// trim range, screen rect in canvas pixels and the placement transform. It is
// computed up front, before any encoder work, so the geometry is test-covered
// without an ffmpeg binary.
type Plan struct {
	OutputFormat string
	CanvasW      int
	CanvasH      int
	Trim         config.TrimRange
	FrameRate    float64

	// Screen is the screen region in canvas pixels, top-left origin (the
	// authoring space). ScreenBottomLeft is the identical rect converted into
	// the bottom-left-origin space some composition backends use; the ffmpeg
	// overlay filter is top-left, so the export path consumes Screen, but the
	// conversion is resolved here so every consumer reads it from one place.
	Screen           placement.Rect
	ScreenBottomLeft placement.Rect

	Transform placement.Transform
	ScaledW   int
	ScaledH   int

	// Frame artwork, trimmed of its transparent padding.
	TrimmedFrame *frame.Image
	FrameW       int
	FrameH       int
}

// FullCanvasScreen reports whether the screen region covers the entire canvas,
// in which case no clipping mask is needed.
func (p *Plan) FullCanvasScreen() bool {
	const eps = 0.01
	return p.Screen.X < eps && p.Screen.Y < eps &&
		p.Screen.W > float64(p.CanvasW)-eps && p.Screen.H > float64(p.CanvasH)-eps
}

// Resolve validates the request and computes the composition geometry.
//
// Canvas policy: with frame artwork the canvas adopts the trimmed artwork's
// aspect ratio (fixed width, derived height) so the artwork is never
// letterboxed; without artwork the canvas falls back to the configured
// dimensions or the upright source aspect, and the full canvas is the screen
// region. All pixel dimensions are rounded down to even values for the
// encoder.
func Resolve(meta *ffmpeg.Metadata, fr *frame.Image, cfg config.CompositionConfig) (*Plan, error) {
	trim := cfg.Trim
	if trim.End == 0 {
		// End left unset means "to the end of the source".
		trim.End = meta.Duration
	}
	if trim.Start < 0 || trim.End <= trim.Start || trim.End > meta.Duration+1e-6 {
		return nil, errors.Wrapf(ErrInvalidTrimRange,
			"[%.3f, %.3f] against source duration %.3f", trim.Start, trim.End, meta.Duration)
	}

	zoom := cfg.Zoom
	if zoom == 0 {
		zoom = 1.0
	}

	upright := placement.UprightSize(
		placement.Size{W: float64(meta.Width), H: float64(meta.Height)},
		meta.Rotation,
	)

	plan := &Plan{
		OutputFormat: cfg.OutputFormat,
		Trim:         trim,
		FrameRate:    meta.FrameRate,
	}
	if plan.OutputFormat == "" {
		plan.OutputFormat = "mp4"
	}
	if plan.FrameRate <= 0 {
		plan.FrameRate = config.DefaultFrameRate
	}

	screen := cfg.Screen.Clamped()
	if screen.W == 0 || screen.H == 0 {
		screen = config.FullCanvas
	}

	canvasW := cfg.CanvasWidth
	if canvasW <= 0 {
		canvasW = config.DefaultCanvasWidth
	}

	if fr != nil {
		trimmed, _ := fr.Trim()
		plan.TrimmedFrame = trimmed
		plan.FrameW, plan.FrameH = trimmed.Size()

		plan.CanvasW = even(canvasW)
		plan.CanvasH = even(int(math.Round(float64(plan.CanvasW) * trimmed.AspectRatio())))
	} else {
		plan.CanvasW = even(canvasW)
		canvasH := cfg.CanvasHeight
		if canvasH <= 0 && upright.W > 0 {
			// No artwork and no explicit height: follow the source's shape.
			canvasH = int(math.Round(float64(plan.CanvasW) * upright.H / upright.W))
		}
		if canvasH <= 0 {
			canvasH = plan.CanvasW
		}
		plan.CanvasH = even(canvasH)
	}
	if plan.CanvasH < 2 {
		plan.CanvasH = 2
	}

	plan.Screen = placement.RectFromPercent(screen, float64(plan.CanvasW), float64(plan.CanvasH))
	plan.ScreenBottomLeft = placement.FlipY(plan.Screen, float64(plan.CanvasH))

	plan.Transform = placement.Calculate(
		placement.Size{W: float64(meta.Width), H: float64(meta.Height)},
		meta.Rotation,
		plan.Screen,
		cfg.Fit,
		zoom,
		cfg.Offset,
	)

	scaled := plan.Transform.ScaledSize(upright)
	plan.ScaledW = even(int(math.Round(scaled.W)))
	plan.ScaledH = even(int(math.Round(scaled.H)))
	if plan.ScaledW < 2 {
		plan.ScaledW = 2
	}
	if plan.ScaledH < 2 {
		plan.ScaledH = 2
	}

	return plan, nil
}

func even(v int) int {
	return v - v%2
}
