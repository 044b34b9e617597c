package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Quality format selectors, best-effort pinned to h264 mp4 so ffmpeg can cut
// windows without re-probing codecs.
var qualityFormats = map[string]string{
	"1080p": "137+140/bestvideo[height=1080]+bestaudio[ext=m4a]/bestvideo[height>=1080]+bestaudio/best[height>=1080]/best",
	"720p":  "136+140/bestvideo[height=720]+bestaudio[ext=m4a]/bestvideo[height>=720]+bestaudio/best[height>=720]/best",
	"480p":  "bestvideo[height=480]+bestaudio[ext=m4a]/bestvideo[height>=480]+bestaudio/best[height>=480]/best",
	"best":  "137+140/bestvideo[height=1080]+bestaudio[ext=m4a]/bestvideo[height>=1080]+bestaudio/best",
}

// Downloader acquires source media through the local yt-dlp binary.
type Downloader struct {
	binaryPath     string
	resolveTimeout time.Duration
	fetchTimeout   time.Duration
}

// NewDownloader creates a downloader. binaryPath defaults to "yt-dlp" in PATH.
func NewDownloader(binaryPath string) *Downloader {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &Downloader{
		binaryPath:     binaryPath,
		resolveTimeout: 2 * time.Minute,
		fetchTimeout:   30 * time.Minute,
	}
}

type probeInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Resolve fetches source metadata without downloading the media.
func (d *Downloader) Resolve(ctx context.Context, sourceURL string) (*types.SourceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, d.resolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binaryPath,
		"--dump-json",
		"--no-warnings",
		"--no-playlist",
		sourceURL,
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &AcquisitionError{Source: sourceURL,
			Err: fmt.Errorf("yt-dlp probe failed: %v, stderr: %s", err, stderr.String())}
	}

	var info probeInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		return nil, &AcquisitionError{Source: sourceURL,
			Err: fmt.Errorf("failed to parse yt-dlp output: %v", err)}
	}

	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = "Unknown Title"
	}
	if len(title) > 200 {
		title = title[:200]
	}

	return &types.SourceInfo{Title: title, Duration: info.Duration}, nil
}

// Fetch downloads the source media to outputPath using the requested quality
// profile, merging to mp4.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, quality, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	defer cancel()

	format, ok := qualityFormats[quality]
	if !ok {
		format = qualityFormats["1080p"]
	}

	log.Printf("Downloading source (quality %s): %s", quality, sourceURL)

	cmd := exec.CommandContext(ctx, d.binaryPath,
		"-f", format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-warnings",
		"-o", outputPath,
		sourceURL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &AcquisitionError{Source: sourceURL,
			Err: fmt.Errorf("yt-dlp failed: %v\nOutput: %s", err, string(output))}
	}

	log.Printf("Source downloaded: %s", outputPath)
	return nil
}
