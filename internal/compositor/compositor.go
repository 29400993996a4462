// Package compositor builds and runs the export pipeline: trim the source,
// place it behind the device-frame artwork, mask it to the screen region and
// encode the layered result to a file.
package compositor

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/internal/ffmpeg"
	"github.com/nortelabs/demofyapp/internal/frame"
	"github.com/nortelabs/demofyapp/internal/placement"
)

// Sentinel errors for the terminal pipeline failures. Probe-stage failures
// (ErrAssetUnreadable, ErrNoVideoTrack) are declared next to the prober.
var (
	// ErrInvalidTrimRange indicates end <= start or a range outside the source.
	ErrInvalidTrimRange = errors.New("invalid trim range")
	// ErrExportSessionCreation indicates the export could not be set up.
	ErrExportSessionCreation = errors.New("export session creation failed")
	// ErrEncodeFailed wraps an underlying encoder failure.
	ErrEncodeFailed = errors.New("encode failed")
)

// Request bundles everything one export needs.
type Request struct {
	InputPath  string
	OutputPath string
	Frame      *frame.Image // optional; nil means no frame overlay
	Config     config.CompositionConfig
}

// Pipeline drives exports. A pipeline instance supports one export in flight;
// a second Export while one is running is rejected.
type Pipeline struct {
	ffmpeg  *ffmpeg.Processor
	verbose bool
	busy    atomic.Bool
}

// New creates an export pipeline.
func New(verbose bool) *Pipeline {
	return &Pipeline{
		ffmpeg:  ffmpeg.NewProcessor(verbose),
		verbose: verbose,
	}
}

// Export runs the full pipeline: probe and validate, resolve geometry, build
// the layered filter graph and encode. Every failure is terminal for this
// attempt; a cancelled or failed run leaves no partial output file behind.
func (p *Pipeline) Export(ctx context.Context, req *Request) error {
	if !p.busy.CompareAndSwap(false, true) {
		return errors.Wrap(ErrExportSessionCreation, "an export is already in progress")
	}
	defer p.busy.Store(false)

	meta, err := p.ffmpeg.Probe(req.InputPath)
	if err != nil {
		return err
	}

	plan, err := Resolve(meta, req.Frame, req.Config)
	if err != nil {
		return err
	}

	if p.verbose {
		log.Printf("Export plan: canvas=%dx%d screen=%+v scale=%.4fx%.4f translate=(%.1f,%.1f)\n",
			plan.CanvasW, plan.CanvasH, plan.Screen,
			plan.Transform.ScaleX, plan.Transform.ScaleY,
			plan.Transform.TranslateX, plan.Transform.TranslateY)
	}

	tempDir, err := os.MkdirTemp("", config.TempDirPrefix)
	if err != nil {
		return errors.Wrapf(ErrExportSessionCreation, "temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	assets, err := writeRenderAssets(tempDir, req.Frame, plan)
	if err != nil {
		return errors.Wrapf(ErrExportSessionCreation, "%v", err)
	}

	stream, err := buildGraph(req.InputPath, req.OutputPath, meta, plan, assets)
	if err != nil {
		return errors.Wrapf(ErrExportSessionCreation, "%v", err)
	}

	if err := p.ffmpeg.RunCancellable(ctx, stream, req.OutputPath); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrapf(ErrEncodeFailed, "%v", err)
	}

	p.verifyDuration(req.OutputPath, plan)
	return nil
}

// verifyDuration probes the written file and logs when its duration deviates
// from the trim range by more than one frame.
func (p *Pipeline) verifyDuration(outputPath string, plan *Plan) {
	if !p.verbose {
		return
	}
	meta, err := p.ffmpeg.Probe(outputPath)
	if err != nil {
		log.Printf("Warning: could not verify output %s: %v\n", outputPath, err)
		return
	}
	want := plan.Trim.Duration()
	tolerance := 1.0 / plan.FrameRate
	if math.Abs(meta.Duration-want) > tolerance {
		log.Printf("Warning: output duration %.3fs deviates from trim duration %.3fs\n",
			meta.Duration, want)
	} else {
		log.Printf("Output verified: %.3fs, %dx%d\n", meta.Duration, meta.Width, meta.Height)
	}
}

// renderAssets are the temp files handed to the encoder.
type renderAssets struct {
	framePath string // trimmed artwork PNG, empty when no frame
	maskPath  string // clipping mask PNG, empty when no masking is needed
}

// writeRenderAssets materializes the trimmed artwork and the clipping mask in
// the scratch directory. The alpha-derived mask follows the artwork's true
// screen silhouette; the rounded-rect raster only covers the no-artwork case.
func writeRenderAssets(tempDir string, fr *frame.Image, plan *Plan) (*renderAssets, error) {
	assets := &renderAssets{}

	if fr != nil {
		trimmed := plan.TrimmedFrame
		assets.framePath = filepath.Join(tempDir, "frame.png")
		if err := frame.WritePNG(assets.framePath, trimmed.Raster); err != nil {
			return nil, err
		}
		assets.maskPath = filepath.Join(tempDir, "mask.png")
		if err := frame.WritePNG(assets.maskPath, trimmed.AlphaMask()); err != nil {
			return nil, err
		}
		return assets, nil
	}

	if !plan.FullCanvasScreen() {
		radius := config.CornerRadiusFraction * math.Min(plan.Screen.W, plan.Screen.H)
		mask := frame.RoundedRectMask(plan.CanvasW, plan.CanvasH, plan.Screen, radius)
		assets.maskPath = filepath.Join(tempDir, "mask.png")
		if err := frame.WritePNG(assets.maskPath, mask); err != nil {
			return nil, err
		}
	}

	return assets, nil
}

// buildGraph assembles the layered ffmpeg filter graph: trimmed source scaled
// to its placement size, overlaid on a canvas-sized base, clipped by the mask,
// then the frame artwork composited on top.
func buildGraph(inputPath, outputPath string, meta *ffmpeg.Metadata, plan *Plan, assets *renderAssets) (*ffmpeggo.Stream, error) {
	settings, err := ffmpeg.GetCodecSettings(plan.OutputFormat)
	if err != nil {
		return nil, err
	}

	dur := plan.Trim.Duration()
	inputKwargs := ffmpeggo.KwArgs{}
	if plan.Trim.Start > 0 {
		inputKwargs["ss"] = fmt.Sprintf("%.6f", plan.Trim.Start)
	}
	inputKwargs["t"] = fmt.Sprintf("%.6f", dur)

	source := ffmpeggo.Input(inputPath, inputKwargs)
	video := source.Video().
		Filter("scale", ffmpeggo.Args{fmt.Sprintf("%d:%d", plan.ScaledW, plan.ScaledH)})

	comp := ffmpeggo.Filter(
		[]*ffmpeggo.Stream{canvasBase(plan, dur), video},
		"overlay",
		ffmpeggo.Args{
			fmt.Sprintf("x=%.2f", plan.Transform.TranslateX),
			fmt.Sprintf("y=%.2f", plan.Transform.TranslateY),
		},
	)

	if assets.maskPath != "" {
		mask := ffmpeggo.Input(assets.maskPath).
			Filter("scale", ffmpeggo.Args{fmt.Sprintf("%d:%d", plan.CanvasW, plan.CanvasH)}).
			Filter("format", ffmpeggo.Args{"gray"})

		masked := ffmpeggo.Filter(
			[]*ffmpeggo.Stream{comp.Filter("format", ffmpeggo.Args{"rgba"}), mask},
			"alphamerge",
			ffmpeggo.Args{},
		)

		comp = ffmpeggo.Filter(
			[]*ffmpeggo.Stream{canvasBase(plan, dur), masked},
			"overlay",
			ffmpeggo.Args{"x=0", "y=0"},
		)
	}

	if assets.framePath != "" {
		fit := placement.AspectFit(
			placement.Size{W: float64(plan.FrameW), H: float64(plan.FrameH)},
			placement.Size{W: float64(plan.CanvasW), H: float64(plan.CanvasH)},
		)
		artwork := ffmpeggo.Input(assets.framePath).
			Filter("scale", ffmpeggo.Args{fmt.Sprintf("%.0f:%.0f", fit.W, fit.H)})

		comp = ffmpeggo.Filter(
			[]*ffmpeggo.Stream{comp, artwork},
			"overlay",
			ffmpeggo.Args{
				fmt.Sprintf("x=%.2f", fit.X),
				fmt.Sprintf("y=%.2f", fit.Y),
			},
		)
	}

	outputKwargs := ffmpeggo.KwArgs{
		"c:v":     settings.VideoCodec,
		"pix_fmt": "yuv420p",
		"r":       fmt.Sprintf("%.3f", plan.FrameRate),
		"threads": ffmpeg.GetOptimalThreadCount(),
		"f":       settings.ContainerFormat,
	}
	for k, v := range settings.EncoderKwArgs {
		outputKwargs[k] = v
	}
	streams := []*ffmpeggo.Stream{comp}
	if meta.HasAudio {
		// Audio is passthrough only: the identical trim range, stream-copied.
		outputKwargs["c:a"] = "copy"
		streams = append(streams, source.Audio())
	}

	return ffmpeggo.Output(streams, outputPath, outputKwargs).OverWriteOutput(), nil
}

// canvasBase returns a canvas-sized opaque black source for the trim duration.
func canvasBase(plan *Plan, dur float64) *ffmpeggo.Stream {
	return ffmpeggo.Input(
		fmt.Sprintf("color=c=black:s=%dx%d:r=%.3f", plan.CanvasW, plan.CanvasH, plan.FrameRate),
		ffmpeggo.KwArgs{"f": "lavfi", "t": fmt.Sprintf("%.6f", dur)},
	)
}
