package config

import (
	"fmt"
	"strings"
)

// ScreenRect describes where source video shows through a frame overlay.
// Each field is a percentage (0-100) of the trimmed frame image's bounds,
// top-left origin. Callers are expected to clamp; the struct does not enforce
// its own invariants.
type ScreenRect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// FullCanvas is the screen rect used when no frame image is configured:
// the video occupies the entire canvas.
var FullCanvas = ScreenRect{X: 0, Y: 0, W: 100, H: 100}

// Clamped returns a copy with all fields forced back into the 0-100 range
// and the rect kept inside the image bounds.
func (r ScreenRect) Clamped() ScreenRect {
	c := r
	if c.X < 0 {
		c.X = 0
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.W < 0 {
		c.W = 0
	}
	if c.H < 0 {
		c.H = 0
	}
	if c.X+c.W > 100 {
		c.W = 100 - c.X
	}
	if c.Y+c.H > 100 {
		c.H = 100 - c.Y
	}
	return c
}

// FitMode selects how source video is scaled into the screen rect.
type FitMode string

const (
	// FitModeFit scales uniformly so the whole source is visible; may letterbox.
	FitModeFit FitMode = "fit"
	// FitModeFill scales uniformly so the source covers the target; may crop.
	FitModeFill FitMode = "fill"
	// FitModeStretch scales each axis independently; may distort.
	FitModeStretch FitMode = "stretch"
)

// ParseFitMode maps a user-supplied string onto a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(strings.ToLower(s)) {
	case FitModeFit, "":
		return FitModeFit, nil
	case FitModeFill:
		return FitModeFill, nil
	case FitModeStretch:
		return FitModeStretch, nil
	default:
		return "", fmt.Errorf("unsupported fit mode: %s (supported: fit, fill, stretch)", s)
	}
}

// Offset is a normalized displacement of the video inside the screen rect.
// Each axis is in [-1, 1]; ±1 moves the content by half the screen-rect
// dimension on that axis.
type Offset struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// TrimRange is the sub-interval of the source timeline included in the export,
// in seconds.
type TrimRange struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Duration returns End - Start.
func (t TrimRange) Duration() float64 {
	return t.End - t.Start
}

// IsZero reports whether no trim was requested.
func (t TrimRange) IsZero() bool {
	return t.Start == 0 && t.End == 0
}

// CompositionConfig is the single value object threaded through both the live
// preview and the export pipeline so the two never diverge geometrically.
type CompositionConfig struct {
	OutputFormat string     `yaml:"outputFormat"` // "mp4" or "mov"
	CanvasWidth  int        `yaml:"canvasWidth"`
	CanvasHeight int        `yaml:"canvasHeight"`
	Trim         TrimRange  `yaml:"trim"`
	Screen       ScreenRect `yaml:"screen"`
	Zoom         float64    `yaml:"zoom"` // 1.0 = nominal fit-computed scale
	Offset       Offset     `yaml:"offset"`
	Fit          FitMode    `yaml:"fit"`
}

const (
	// DetectWorkingSize bounds the flood fill cost: the frame raster is
	// downsampled so its longest edge is this many pixels before detection.
	DetectWorkingSize = 600

	// DetectInsetPercent is shaved off each edge of a detected screen rect so
	// anti-aliased border pixels never let a video sliver bleed past the true
	// screen edge.
	DetectInsetPercent = 1.0

	// MinZoom is the floor applied to the zoom factor so the placement scale
	// can never collapse to zero.
	MinZoom = 0.1

	// CornerRadiusFraction of min(screen width, screen height) is used for the
	// rounded-rect fallback mask when no frame image is available.
	CornerRadiusFraction = 0.12

	// DefaultCanvasWidth is used when the caller does not size the canvas.
	DefaultCanvasWidth = 1080

	// DefaultFrameRate is assumed when the source reports no frame rate.
	DefaultFrameRate = 30.0

	// DefaultCanvasAspect (height over width) matches a modern phone screen
	// and is used by the preview when no frame image establishes an aspect.
	DefaultCanvasAspect = 19.5 / 9.0

	// TempDirPrefix names the scratch directory that holds generated masks.
	TempDirPrefix = "demofy_compose_"
)
