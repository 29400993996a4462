package compositor

import (
	"errors"
	"image"
	"testing"

	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/ffmpeg"
	"github.com/nortelabs/demofyapp/internal/frame"
)

func testMeta() *ffmpeg.Metadata {
	return &ffmpeg.Metadata{
		Duration:  10.0,
		Width:     1920,
		Height:    1080,
		FrameRate: 30,
		Codec:     "h264",
	}
}

// testFrame builds 1000x2000 artwork with a transparent hole at 10%/5%/80%/90%.
func testFrame() *frame.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1000, 2000))
	hole := image.Rect(100, 100, 900, 1900)
	for y := 0; y < 2000; y++ {
		for x := 0; x < 1000; x++ {
			if image.Pt(x, y).In(hole) {
				continue
			}
			i := y*img.Stride + x*4
			img.Pix[i+3] = 255
		}
	}
	return &frame.Image{Raster: img}
}

func TestResolveTrimValidation(t *testing.T) {
	tests := []struct {
		name    string
		trim    config.TrimRange
		wantErr bool
	}{
		{"no trim means full source", config.TrimRange{}, false},
		{"valid subrange", config.TrimRange{Start: 2, End: 7}, false},
		{"start only runs to source end", config.TrimRange{Start: 4}, false},
		{"end equals duration", config.TrimRange{Start: 0, End: 10}, false},
		{"end before start", config.TrimRange{Start: 7, End: 2}, true},
		{"end equals start", config.TrimRange{Start: 3, End: 3}, true},
		{"negative start", config.TrimRange{Start: -1, End: 5}, true},
		{"end past duration", config.TrimRange{Start: 0, End: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(testMeta(), nil, config.CompositionConfig{Trim: tt.trim})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTrimRange) {
					t.Errorf("expected ErrInvalidTrimRange, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveDefaultTrimCoversSource(t *testing.T) {
	plan, err := Resolve(testMeta(), nil, config.CompositionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Trim.Start != 0 || plan.Trim.End != 10 {
		t.Errorf("expected trim [0,10], got %+v", plan.Trim)
	}
}

func TestResolveCanvasFollowsFrameAspect(t *testing.T) {
	fr := testFrame()
	plan, err := Resolve(testMeta(), fr, config.CompositionConfig{
		CanvasWidth: 1080,
		Screen:      config.ScreenRect{X: 10, Y: 5, W: 80, H: 90},
	})
	if err != nil {
		t.Fatal(err)
	}

	if plan.CanvasW != 1080 {
		t.Errorf("expected canvas width 1080, got %d", plan.CanvasW)
	}
	// Artwork is 1:2, so height = 2160, already even.
	if plan.CanvasH != 2160 {
		t.Errorf("expected canvas height 2160, got %d", plan.CanvasH)
	}
	if plan.CanvasW%2 != 0 || plan.CanvasH%2 != 0 {
		t.Errorf("canvas dimensions must be even: %dx%d", plan.CanvasW, plan.CanvasH)
	}
}

func TestResolveEvenHeightRounding(t *testing.T) {
	// 999x1000 artwork: 1080 * 1000/999 = 1081.08 -> 1081 -> even 1080.
	img := image.NewNRGBA(image.Rect(0, 0, 999, 1000))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	fr := &frame.Image{Raster: img}

	plan, err := Resolve(testMeta(), fr, config.CompositionConfig{CanvasWidth: 1080})
	if err != nil {
		t.Fatal(err)
	}
	if plan.CanvasH%2 != 0 {
		t.Errorf("canvas height not even: %d", plan.CanvasH)
	}
}

func TestResolveNoFrameFullCanvasScreen(t *testing.T) {
	plan, err := Resolve(testMeta(), nil, config.CompositionConfig{
		CanvasWidth:  1280,
		CanvasHeight: 720,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !plan.FullCanvasScreen() {
		t.Errorf("expected full-canvas screen, got %+v", plan.Screen)
	}
	if plan.Screen.W != 1280 || plan.Screen.H != 720 {
		t.Errorf("expected screen 1280x720, got %+v", plan.Screen)
	}
}

func TestResolveScreenRectPixels(t *testing.T) {
	fr := testFrame()
	plan, err := Resolve(testMeta(), fr, config.CompositionConfig{
		CanvasWidth: 1080,
		Screen:      config.ScreenRect{X: 10, Y: 5, W: 80, H: 90},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Canvas is 1080x2160.
	if plan.Screen.X != 108 || plan.Screen.Y != 108 {
		t.Errorf("unexpected screen origin: %+v", plan.Screen)
	}
	if plan.Screen.W != 864 || plan.Screen.H != 1944 {
		t.Errorf("unexpected screen size: %+v", plan.Screen)
	}

	// Bottom-left-origin companion rect: y' = H - y - h.
	wantY := 2160.0 - 108.0 - 1944.0
	if plan.ScreenBottomLeft.Y != wantY {
		t.Errorf("expected bottom-left y=%v, got %v", wantY, plan.ScreenBottomLeft.Y)
	}
}

func TestResolveRotatedSource(t *testing.T) {
	meta := testMeta()
	meta.Rotation = 90 // upright size becomes 1080x1920

	plan, err := Resolve(meta, nil, config.CompositionConfig{CanvasWidth: 540})
	if err != nil {
		t.Fatal(err)
	}

	// Canvas derives from the upright aspect: 540 * 1920/1080 = 960.
	if plan.CanvasH != 960 {
		t.Errorf("expected canvas height 960 for rotated source, got %d", plan.CanvasH)
	}
	if plan.ScaledW != 540 || plan.ScaledH != 960 {
		t.Errorf("expected scaled 540x960, got %dx%d", plan.ScaledW, plan.ScaledH)
	}
}

func TestResolveFrameRateFallback(t *testing.T) {
	meta := testMeta()
	meta.FrameRate = 0

	plan, err := Resolve(meta, nil, config.CompositionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.FrameRate != config.DefaultFrameRate {
		t.Errorf("expected fallback frame rate %v, got %v", config.DefaultFrameRate, plan.FrameRate)
	}
}

func TestResolveScaledDimensionsEven(t *testing.T) {
	meta := testMeta()
	meta.Width = 1001
	meta.Height = 733

	plan, err := Resolve(meta, nil, config.CompositionConfig{
		CanvasWidth:  500,
		CanvasHeight: 500,
		Fit:          config.FitModeFit,
		Zoom:         1.37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.ScaledW%2 != 0 || plan.ScaledH%2 != 0 {
		t.Errorf("scaled dimensions must be even: %dx%d", plan.ScaledW, plan.ScaledH)
	}
}

func TestExportRejectsConcurrentRun(t *testing.T) {
	p := New(false)
	p.busy.Store(true)

	err := p.Export(nil, &Request{InputPath: "in.mp4", OutputPath: "out.mp4"})
	if !errors.Is(err, ErrExportSessionCreation) {
		t.Errorf("expected ErrExportSessionCreation while busy, got %v", err)
	}
}

func TestFullCanvasScreenTolerance(t *testing.T) {
	plan := &Plan{CanvasW: 1080, CanvasH: 1920}
	plan.Screen.W = 1080
	plan.Screen.H = 1920
	if !plan.FullCanvasScreen() {
		t.Error("exact cover should count as full canvas")
	}

	plan.Screen.X = 100
	if plan.FullCanvasScreen() {
		t.Error("offset screen must not count as full canvas")
	}
}
