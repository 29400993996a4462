package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nortelabs/demofyapp/internal/config"
	"github.com/nortelabs/demofyapp/pkg/composer"
)

var (
	rootCmd = &cobra.Command{
		Use:   "demofy",
		Short: "Composite screen recordings into device frames",
		Long: `demofy places screen-recorded video inside device-frame artwork and
exports the composited result as an encoded video.

Examples:
  # Compose a recording into a frame image, auto-detecting the screen region
  demofy compose -i recording.mp4 -o demo.mp4 --frame iphone.png

  # Use a built-in preset, trim to 2s-7s and fill the screen
  demofy compose -i recording.mp4 -o demo.mp4 --preset phone-portrait \
    --trim-start 2 --trim-end 7 --fit fill

  # Inspect where the transparent screen hole sits in frame artwork
  demofy detect --frame iphone.png`,
	}

	composeCmd = &cobra.Command{
		Use:   "compose",
		Short: "Compose a video into frame artwork and export it",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &composer.ExportOptions{}

			opts.InputPath, _ = cmd.Flags().GetString("input")
			opts.OutputPath, _ = cmd.Flags().GetString("output")
			opts.FramePath, _ = cmd.Flags().GetString("frame")
			opts.Preset, _ = cmd.Flags().GetString("preset")
			opts.PresetFile, _ = cmd.Flags().GetString("preset-file")
			opts.FitMode, _ = cmd.Flags().GetString("fit")
			opts.ZoomPercent, _ = cmd.Flags().GetFloat64("zoom")
			opts.OffsetXPercent, _ = cmd.Flags().GetFloat64("offset-x")
			opts.OffsetYPercent, _ = cmd.Flags().GetFloat64("offset-y")
			opts.TrimStartSeconds, _ = cmd.Flags().GetFloat64("trim-start")
			opts.TrimEndSeconds, _ = cmd.Flags().GetFloat64("trim-end")
			opts.OutputFormat, _ = cmd.Flags().GetString("format")
			opts.CanvasWidth, _ = cmd.Flags().GetInt("canvas-width")
			opts.CanvasHeight, _ = cmd.Flags().GetInt("canvas-height")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			if screenStr, _ := cmd.Flags().GetString("screen-rect"); screenStr != "" {
				rect, err := parseScreenRect(screenStr)
				if err != nil {
					return err
				}
				opts.ScreenRect = &rect
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return composer.Export(ctx, opts)
		},
	}

	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Locate the transparent screen region in frame artwork",
		RunE: func(cmd *cobra.Command, args []string) error {
			framePath, _ := cmd.Flags().GetString("frame")

			rect, err := composer.DetectScreenRect(framePath)
			if err != nil {
				return err
			}

			fmt.Printf("x=%.2f%% y=%.2f%% w=%.2f%% h=%.2f%%\n", rect.X, rect.Y, rect.W, rect.H)
			return nil
		},
	}

	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "List the available device-frame presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if presetFile, _ := cmd.Flags().GetString("preset-file"); presetFile != "" {
				if err := composer.LoadPresetFile(presetFile); err != nil {
					return err
				}
			}
			for _, p := range composer.Presets() {
				r := p.ScreenRect
				fmt.Printf("%-18s %-22s screen={x:%.1f y:%.1f w:%.1f h:%.1f}\n",
					p.ID, p.DisplayLabel, r.X, r.Y, r.W, r.H)
			}
			return nil
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Print metadata about a video file",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, _ := cmd.Flags().GetString("input")
			verbose, _ := cmd.Flags().GetBool("verbose")

			meta, err := composer.Probe(inputPath, verbose)
			if err != nil {
				return err
			}

			fmt.Printf("duration=%.3fs size=%dx%d rotation=%d fps=%.3f codec=%s audio=%v\n",
				meta.Duration, meta.Width, meta.Height, meta.Rotation,
				meta.FrameRate, meta.Codec, meta.HasAudio)
			return nil
		},
	}
)

// parseScreenRect reads "x,y,w,h" percentages.
func parseScreenRect(s string) (config.ScreenRect, error) {
	var rect config.ScreenRect
	n, err := fmt.Sscanf(s, "%f,%f,%f,%f", &rect.X, &rect.Y, &rect.W, &rect.H)
	if err != nil || n != 4 {
		return config.ScreenRect{}, fmt.Errorf("invalid screen rect %q (expected x,y,w,h percentages)", s)
	}
	return rect, nil
}

func init() {
	composeCmd.Flags().StringP("input", "i", "", "Input video file")
	composeCmd.Flags().StringP("output", "o", "", "Output video path")
	composeCmd.Flags().String("frame", "", "Frame artwork PNG with a transparent screen hole")
	composeCmd.Flags().String("preset", "", "Device-frame preset ID (see 'demofy presets')")
	composeCmd.Flags().String("preset-file", "", "YAML file with additional presets")
	composeCmd.Flags().String("screen-rect", "", "Explicit screen rect as x,y,w,h percentages (skips detection)")
	composeCmd.Flags().String("fit", "fit", "Fit mode: fit, fill or stretch")
	composeCmd.Flags().Float64("zoom", 100, "Zoom percentage (100 = nominal fit)")
	composeCmd.Flags().Float64("offset-x", 0, "Horizontal offset percentage (-100..100)")
	composeCmd.Flags().Float64("offset-y", 0, "Vertical offset percentage (-100..100)")
	composeCmd.Flags().Float64("trim-start", 0, "Trim start in seconds")
	composeCmd.Flags().Float64("trim-end", 0, "Trim end in seconds (0 = end of source)")
	composeCmd.Flags().StringP("format", "f", "mp4", "Output container: mp4 or mov")
	composeCmd.Flags().Int("canvas-width", config.DefaultCanvasWidth, "Output canvas width in pixels")
	composeCmd.Flags().Int("canvas-height", 0, "Output canvas height (derived from frame or source when 0)")
	composeCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	composeCmd.MarkFlagRequired("input")
	composeCmd.MarkFlagRequired("output")

	detectCmd.Flags().String("frame", "", "Frame artwork PNG")
	detectCmd.MarkFlagRequired("frame")

	presetsCmd.Flags().String("preset-file", "", "YAML file with additional presets")

	probeCmd.Flags().StringP("input", "i", "", "Input video file")
	probeCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	probeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(probeCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
