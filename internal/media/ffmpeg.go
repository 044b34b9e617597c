package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// FFmpeg wraps the ffmpeg/ffprobe binaries for audio extraction, vertical
// rendering and thumbnail generation.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates the wrapper. Empty paths default to binaries in PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Tags      struct {
			Language string `json:"language"`
			Title    string `json:"title"`
		} `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeAudioStreams inspects the media file and returns its audio tracks in
// container order. A probe failure returns an empty list rather than an
// error so stream selection can fall back to the default track.
func (f *FFmpeg) ProbeAudioStreams(ctx context.Context, mediaPath string) []types.AudioStream {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		mediaPath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		log.Printf("Could not probe media streams, using default audio: %v", err)
		return nil
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		log.Printf("Failed to parse ffprobe output: %v", err)
		return nil
	}

	var streams []types.AudioStream
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		streams = append(streams, types.AudioStream{
			Language: s.Tags.Language,
			Title:    s.Tags.Title,
		})
	}
	return streams
}

// ProbeDuration returns the media duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		mediaPath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %v", err)
	}
	return duration, nil
}

// ExtractAudio pulls the selected audio stream out of the media file as
// 16kHz mono PCM, the input format the transcriber expects.
func (f *FFmpeg) ExtractAudio(ctx context.Context, mediaPath string, streamIndex int, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", mediaPath,
		"-map", fmt.Sprintf("0:a:%d", streamIndex),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ExtractionError{Media: mediaPath,
			Err: fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))}
	}
	return nil
}

// RenderWindow cuts the [start,end] window out of the source and renders it
// as a vertical 1080x1920 clip.
func (f *FFmpeg) RenderWindow(ctx context.Context, mediaPath string, startSec, endSec float64, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	duration := endSec - startSec

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", mediaPath,
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(duration),
		"-vf", "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &RenderError{Output: outputPath,
			Err: fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))}
	}
	return nil
}

// Thumbnail grabs a single frame one second into the clip.
func (f *FFmpeg) Thumbnail(ctx context.Context, clipPath, thumbnailPath string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", clipPath,
		"-ss", "00:00:01.000",
		"-vframes", "1",
		"-s", "640x1136",
		"-y",
		thumbnailPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &RenderError{Output: thumbnailPath,
			Err: fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))}
	}
	return nil
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
