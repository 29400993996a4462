// Package composer is the public entry point: it resolves frame artwork and
// screen regions, assembles the composition config and drives the export
// pipeline.
package composer

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/nortelabs/demofyapp/internal/compositor"
	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/ffmpeg"
	"github.com/nortelabs/demofyapp/internal/frame"
	"github.com/nortelabs/demofyapp/internal/preset"
)

// ExportOptions defines one export. Percent-valued fields follow the
// configuration surface of the UI layer: zoom 100 = nominal fit, offsets in
// [-100, 100] where ±100 moves the content center to the screen edge.
type ExportOptions struct {
	InputPath  string
	OutputPath string

	// Frame resolution order: FramePath, then the preset's bundled image,
	// then no frame at all.
	FramePath  string
	Preset     string
	PresetFile string

	// ScreenRect overrides both detection and the preset default when set.
	ScreenRect *config.ScreenRect

	FitMode          string
	ZoomPercent      float64
	OffsetXPercent   float64
	OffsetYPercent   float64
	TrimStartSeconds float64
	TrimEndSeconds   float64
	OutputFormat     string
	CanvasWidth      int
	CanvasHeight     int
	Verbose          bool
}

// Export composes the source video behind the resolved frame artwork and
// encodes the result to OutputPath.
func Export(ctx context.Context, opts *ExportOptions) error {
	if opts.InputPath == "" || opts.OutputPath == "" {
		return errors.New("input path and output path are required")
	}

	if opts.PresetFile != "" {
		if err := preset.LoadFile(opts.PresetFile); err != nil {
			return err
		}
	}

	fit, err := config.ParseFitMode(opts.FitMode)
	if err != nil {
		return err
	}

	fr, screen, err := resolveFrame(opts)
	if err != nil {
		return err
	}

	zoom := opts.ZoomPercent / 100
	if opts.ZoomPercent == 0 {
		zoom = 1.0
	}

	cfg := config.CompositionConfig{
		OutputFormat: opts.OutputFormat,
		CanvasWidth:  opts.CanvasWidth,
		CanvasHeight: opts.CanvasHeight,
		Trim:         config.TrimRange{Start: opts.TrimStartSeconds, End: opts.TrimEndSeconds},
		Screen:       screen,
		Zoom:         zoom,
		Offset:       config.Offset{X: opts.OffsetXPercent / 100, Y: opts.OffsetYPercent / 100},
		Fit:          fit,
	}

	pipeline := compositor.New(opts.Verbose)
	return pipeline.Export(ctx, &compositor.Request{
		InputPath:  opts.InputPath,
		OutputPath: opts.OutputPath,
		Frame:      fr,
		Config:     cfg,
	})
}

// resolveFrame applies the deterministic fallback order for artwork and
// screen rect: explicit path beats preset image; an explicit rect beats
// detection, which beats the preset default, which beats full canvas.
func resolveFrame(opts *ExportOptions) (*frame.Image, config.ScreenRect, error) {
	var (
		imagePath  string
		presetRect config.ScreenRect
		havePreset bool
	)

	if opts.Preset != "" {
		p, err := preset.Get(opts.Preset)
		if err != nil {
			return nil, config.ScreenRect{}, err
		}
		imagePath = p.ImagePath
		presetRect = p.ScreenRect
		havePreset = true
	}
	if opts.FramePath != "" {
		imagePath = opts.FramePath
	}

	var fr *frame.Image
	if imagePath != "" {
		loaded, err := frame.Load(imagePath)
		if err != nil {
			return nil, config.ScreenRect{}, err
		}
		fr = loaded
	}

	if opts.ScreenRect != nil {
		return fr, opts.ScreenRect.Clamped(), nil
	}

	if fr != nil {
		trimmed, _ := fr.Trim()
		if detected, ok := frame.Detect(trimmed); ok {
			if opts.Verbose {
				log.Printf("Detected screen region: %+v\n", detected)
			}
			return fr, detected, nil
		}
		if opts.Verbose {
			log.Printf("Screen detection found no transparent hole; keeping configured rect\n")
		}
	}

	if havePreset {
		return fr, presetRect, nil
	}
	return fr, config.FullCanvas, nil
}

// DetectScreenRect loads frame artwork, trims its transparent padding and
// locates the screen hole.
func DetectScreenRect(framePath string) (config.ScreenRect, error) {
	fr, err := frame.Load(framePath)
	if err != nil {
		return config.ScreenRect{}, err
	}
	trimmed, ok := fr.Trim()
	if !ok {
		return config.ScreenRect{}, errors.Errorf("%s is fully transparent", framePath)
	}
	sr, ok := frame.Detect(trimmed)
	if !ok {
		return config.ScreenRect{}, errors.Errorf("no transparent screen region found in %s", framePath)
	}
	return sr, nil
}

// Probe returns metadata for a video file.
func Probe(inputPath string, verbose bool) (*ffmpeg.Metadata, error) {
	return ffmpeg.NewProcessor(verbose).Probe(inputPath)
}

// Presets lists the registered device-frame presets in registration order.
func Presets() []preset.Preset {
	return preset.All()
}

// LoadPresetFile registers additional presets from a YAML file.
func LoadPresetFile(path string) error {
	return preset.LoadFile(path)
}
