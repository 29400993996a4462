// Package ffmpeg wraps the ffmpeg-go bindings: probing source media,
// container-specific codec settings and cancellable encoder runs.
package ffmpeg

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Sentinel errors surfaced while opening a source asset.
var (
	// ErrAssetUnreadable indicates the file could not be opened or probed.
	ErrAssetUnreadable = errors.New("asset unreadable")
	// ErrNoVideoTrack indicates the asset contains no video stream.
	ErrNoVideoTrack = errors.New("no video track")
)

// CodecSettings holds the encoder configuration for one output container.
type CodecSettings struct {
	VideoCodec      string
	AudioCodec      string
	ContainerFormat string
	FileExtension   string
	EncoderKwArgs   ffmpeg.KwArgs
}

// Both containers use libx264 at a high-quality preset; mov differs only in
// container plumbing (no faststart, mov muxer).
var codecPresets = map[string]CodecSettings{
	"mp4": {
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		ContainerFormat: "mp4",
		FileExtension:   ".mp4",
		EncoderKwArgs: ffmpeg.KwArgs{
			"preset":    "slower",
			"crf":       18,
			"profile:v": "high",
			"level":     "4.2",
			"movflags":  "+faststart",
		},
	},
	"mov": {
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		ContainerFormat: "mov",
		FileExtension:   ".mov",
		EncoderKwArgs: ffmpeg.KwArgs{
			"preset":    "slower",
			"crf":       18,
			"profile:v": "high",
			"level":     "4.2",
		},
	},
}

// GetCodecSettings returns the encoder configuration for an output format.
func GetCodecSettings(outputFormat string) (CodecSettings, error) {
	settings, ok := codecPresets[strings.ToLower(outputFormat)]
	if !ok {
		return CodecSettings{}, errors.Errorf("unsupported output format: %s (supported: mp4, mov)", outputFormat)
	}
	return settings, nil
}

// Metadata describes a probed video source.
type Metadata struct {
	Duration  float64
	Width     int
	Height    int
	Rotation  int // orientation-correcting rotation in degrees, 0/90/180/270
	FrameRate float64
	Codec     string
	HasAudio  bool
}

// Processor wraps FFmpeg functionality.
type Processor struct {
	verbose bool
}

// NewProcessor creates a new FFmpeg processor.
func NewProcessor(verbose bool) *Processor {
	return &Processor{verbose: verbose}
}

// Probe retrieves metadata about a video file. The file is validated here: an
// unreadable file maps to ErrAssetUnreadable and a file without a video
// stream to ErrNoVideoTrack.
func (p *Processor) Probe(inputPath string) (*Metadata, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, errors.Wrapf(ErrAssetUnreadable, "%s: %v", inputPath, err)
	}

	probe, err := ffmpeg.Probe(inputPath)
	if err != nil {
		return nil, errors.Wrapf(ErrAssetUnreadable, "error probing %s: %v", inputPath, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, errors.Wrapf(ErrNoVideoTrack, "no streams found in %s", inputPath)
	}

	var videoStream map[string]interface{}
	hasAudio := false
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		switch s["codec_type"] {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			hasAudio = true
		}
	}

	if videoStream == nil {
		return nil, errors.Wrapf(ErrNoVideoTrack, "no video stream found in %s", inputPath)
	}

	duration := extractDuration(data, videoStream)
	if duration == 0 {
		return nil, errors.Wrapf(ErrAssetUnreadable, "could not determine duration of %s", inputPath)
	}

	width, _ := videoStream["width"].(float64)
	height, _ := videoStream["height"].(float64)
	codec, _ := videoStream["codec_name"].(string)

	meta := &Metadata{
		Duration:  duration,
		Width:     int(width),
		Height:    int(height),
		Rotation:  extractRotation(videoStream),
		FrameRate: extractFrameRate(videoStream),
		Codec:     codec,
		HasAudio:  hasAudio,
	}

	if p.verbose {
		log.Printf("Probed %s: %.2fs %dx%d rot=%d fps=%.2f codec=%s audio=%v\n",
			inputPath, meta.Duration, meta.Width, meta.Height,
			meta.Rotation, meta.FrameRate, meta.Codec, meta.HasAudio)
	}

	return meta, nil
}

// extractDuration tries the video stream, then the container format, then a
// frame-count estimate.
func extractDuration(data, videoStream map[string]interface{}) float64 {
	if durationStr, ok := videoStream["duration"].(string); ok {
		if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil && d > 0 {
			return d
		}
	}

	if format, ok := data["format"].(map[string]interface{}); ok {
		if durationStr, ok := format["duration"].(string); ok {
			if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil && d > 0 {
				return d
			}
		}
	}

	if nbFrames, ok := videoStream["nb_frames"].(string); ok {
		if frames, err := strconv.ParseFloat(nbFrames, 64); err == nil {
			if rate := extractFrameRate(videoStream); rate > 0 {
				return frames / rate
			}
		}
	}

	return 0
}

func extractFrameRate(videoStream map[string]interface{}) float64 {
	for _, key := range []string{"avg_frame_rate", "r_frame_rate"} {
		rateStr, ok := videoStream[key].(string)
		if !ok {
			continue
		}
		if nums := strings.Split(rateStr, "/"); len(nums) == 2 {
			num, err1 := strconv.ParseFloat(nums[0], 64)
			den, err2 := strconv.ParseFloat(nums[1], 64)
			if err1 == nil && err2 == nil && den != 0 && num > 0 {
				return num / den
			}
		}
	}
	return 0
}

// extractRotation reads the orientation-correcting rotation either from the
// display-matrix side data or from the legacy rotate tag, normalized to
// 0/90/180/270.
func extractRotation(videoStream map[string]interface{}) int {
	if sideData, ok := videoStream["side_data_list"].([]interface{}); ok {
		for _, sd := range sideData {
			m, ok := sd.(map[string]interface{})
			if !ok {
				continue
			}
			if rot, ok := m["rotation"].(float64); ok {
				return normalizeRotation(int(math.Round(rot)))
			}
		}
	}

	if tags, ok := videoStream["tags"].(map[string]interface{}); ok {
		if rotStr, ok := tags["rotate"].(string); ok {
			if rot, err := strconv.Atoi(rotStr); err == nil {
				return normalizeRotation(rot)
			}
		}
	}

	return 0
}

func normalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}

// RunCancellable compiles and runs an ffmpeg-go stream under the given
// context. Cancellation kills the encoder process and removes the partial
// output file so a cancelled export never leaves a corrupt artifact behind.
func (p *Processor) RunCancellable(ctx context.Context, stream *ffmpeg.Stream, outputPath string) error {
	cmd := stream.Compile()
	if p.verbose {
		log.Printf("FFmpeg command: %s\n", strings.Join(cmd.Args, " "))
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start ffmpeg")
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		_ = os.Remove(outputPath)
		return errors.Wrap(ctx.Err(), "export cancelled")
	case err := <-done:
		if err != nil {
			_ = os.Remove(outputPath)
			return errors.Wrap(err, "ffmpeg run failed")
		}
	}

	return nil
}

// Available reports whether the ffmpeg and ffprobe binaries can be found.
// Probing and encoding both shell out to them.
func Available() bool {
	_, errF := exec.LookPath("ffmpeg")
	_, errP := exec.LookPath("ffprobe")
	return errF == nil && errP == nil
}

// GetOptimalThreadCount returns the encoder thread count: 75% of the
// available cores to keep the machine responsive during an export.
func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	return int(math.Max(1, float64(cpuCount)*0.75))
}
