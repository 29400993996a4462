package preview

import (
	"image"
	"math"
	"testing"

	"github.com/nortelabs/demofyapp/internal/compositor"
	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/ffmpeg"
	"github.com/nortelabs/demofyapp/internal/frame"
)

// phoneFrame builds 1000x2000 artwork with a transparent screen hole.
func phoneFrame() *frame.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1000, 2000))
	hole := image.Rect(100, 100, 900, 1900)
	for y := 0; y < 2000; y++ {
		for x := 0; x < 1000; x++ {
			if image.Pt(x, y).In(hole) {
				continue
			}
			img.Pix[y*img.Stride+x*4+3] = 255
		}
	}
	return &frame.Image{Raster: img}
}

// The preview must reproduce the export pipeline's geometry exactly when the
// viewport matches the export canvas.
func TestPreviewExportParity(t *testing.T) {
	fr := phoneFrame()
	cfg := config.CompositionConfig{
		CanvasWidth: 1080,
		Screen:      config.ScreenRect{X: 10, Y: 5, W: 80, H: 90},
		Fit:         config.FitModeFill,
		Zoom:        1.2,
		Offset:      config.Offset{X: 0.25, Y: -0.5},
	}
	meta := &ffmpeg.Metadata{Duration: 10, Width: 1920, Height: 1080, FrameRate: 30}

	plan, err := compositor.Resolve(meta, fr, cfg)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(fr)
	layout := r.Layout(cfg, meta.Width, meta.Height, meta.Rotation,
		float64(plan.CanvasW), float64(plan.CanvasH))

	const eps = 1e-6
	if math.Abs(layout.Screen.X-plan.Screen.X) > eps ||
		math.Abs(layout.Screen.Y-plan.Screen.Y) > eps ||
		math.Abs(layout.Screen.W-plan.Screen.W) > eps ||
		math.Abs(layout.Screen.H-plan.Screen.H) > eps {
		t.Errorf("screen rects diverge: preview %+v vs export %+v", layout.Screen, plan.Screen)
	}

	if math.Abs(layout.Video.X-plan.Transform.TranslateX) > eps ||
		math.Abs(layout.Video.Y-plan.Transform.TranslateY) > eps {
		t.Errorf("video placement diverges: preview (%.3f,%.3f) vs export (%.3f,%.3f)",
			layout.Video.X, layout.Video.Y,
			plan.Transform.TranslateX, plan.Transform.TranslateY)
	}

	if !layout.UseAlphaMask {
		t.Error("preview should use the alpha mask when artwork is present")
	}
}

func TestLayoutNoFrameUsesDefaultAspect(t *testing.T) {
	r := NewRenderer(nil)
	layout := r.Layout(config.CompositionConfig{}, 1920, 1080, 0, 900, 1950)

	wantAspect := config.DefaultCanvasAspect
	gotAspect := layout.Canvas.H / layout.Canvas.W
	if math.Abs(gotAspect-wantAspect) > 1e-6 {
		t.Errorf("expected canvas aspect %.4f, got %.4f", wantAspect, gotAspect)
	}
	if layout.UseAlphaMask {
		t.Error("no artwork: preview must fall back to the rounded-rect clip")
	}
}

func TestLayoutCanvasCenteredInWideViewport(t *testing.T) {
	r := NewRenderer(phoneFrame())
	layout := r.Layout(config.CompositionConfig{}, 1920, 1080, 0, 2000, 1000)

	// 1:2 artwork in a 2000x1000 viewport: canvas is 500x1000, centered.
	if math.Abs(layout.Canvas.W-500) > 1e-6 || math.Abs(layout.Canvas.H-1000) > 1e-6 {
		t.Errorf("expected 500x1000 canvas, got %.1fx%.1f", layout.Canvas.W, layout.Canvas.H)
	}
	if math.Abs(layout.Canvas.X-750) > 1e-6 {
		t.Errorf("expected canvas centered at x=750, got %.1f", layout.Canvas.X)
	}
}

func TestLayoutFillExceedsScreen(t *testing.T) {
	fr := phoneFrame()
	cfg := config.CompositionConfig{
		Screen: config.ScreenRect{X: 10, Y: 5, W: 80, H: 90},
		Fit:    config.FitModeFill,
	}
	r := NewRenderer(fr)
	layout := r.Layout(cfg, 1920, 1080, 0, 1000, 2000)

	// A landscape source filling a portrait screen overflows horizontally.
	if layout.Video.W <= layout.Screen.W {
		t.Errorf("fill should overflow the screen width: video %.1f vs screen %.1f",
			layout.Video.W, layout.Screen.W)
	}
	if layout.Video.X >= layout.Screen.X {
		t.Error("overflowing video should start left of the screen rect")
	}
}

func TestLayoutRotationSwapsFit(t *testing.T) {
	r := NewRenderer(phoneFrame())
	cfg := config.CompositionConfig{
		Screen: config.ScreenRect{X: 10, Y: 5, W: 80, H: 90},
		Fit:    config.FitModeFit,
	}

	landscape := r.Layout(cfg, 1920, 1080, 0, 1000, 2000)
	rotated := r.Layout(cfg, 1920, 1080, 90, 1000, 2000)

	if rotated.Video.H <= landscape.Video.H {
		t.Errorf("rotated (portrait) content should fill more height: %.1f vs %.1f",
			rotated.Video.H, landscape.Video.H)
	}
}
