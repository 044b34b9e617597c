package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

func testArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	tmp := t.TempDir()
	artifacts, err := NewArtifacts(
		filepath.Join(tmp, "uploads"),
		filepath.Join(tmp, "temp"),
		filepath.Join(tmp, "outputs"),
	)
	if err != nil {
		t.Fatalf("new artifacts: %v", err)
	}
	return artifacts
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNewArtifacts_CreatesDirectories(t *testing.T) {
	artifacts := testArtifacts(t)
	for _, dir := range []string{artifacts.UploadsDir(), artifacts.TempDir(), artifacts.OutputsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err %v", dir, err)
		}
	}
}

func TestPathLayout(t *testing.T) {
	artifacts := testArtifacts(t)

	if got := filepath.Base(artifacts.VideoPath("j1")); got != "video_j1.mp4" {
		t.Fatalf("unexpected video path base %q", got)
	}
	if got := filepath.Base(artifacts.AudioPath("j1")); got != "audio_j1.wav" {
		t.Fatalf("unexpected audio path base %q", got)
	}
	if got := filepath.Base(artifacts.TranscriptPath("j1")); got != "transcript_j1.json" {
		t.Fatalf("unexpected transcript path base %q", got)
	}
	if got := filepath.Base(artifacts.ClipPath("c1")); got != "short_c1.mp4" {
		t.Fatalf("unexpected clip path base %q", got)
	}
	if got := filepath.Base(artifacts.ThumbnailPath("c1")); got != "short_c1_thumb.jpg" {
		t.Fatalf("unexpected thumbnail path base %q", got)
	}
}

func TestRetire_Idempotent(t *testing.T) {
	artifacts := testArtifacts(t)

	path := artifacts.AudioPath("j1")
	touch(t, path)

	artifacts.Retire(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s deleted, stat err %v", path, err)
	}

	// Retiring again, with empties mixed in, is a quiet no-op.
	artifacts.Retire(path, "", artifacts.VideoPath("never-created"))
}

func TestRetireJobArtifacts(t *testing.T) {
	artifacts := testArtifacts(t)

	job := &types.Job{
		ID:             "j1",
		VideoPath:      artifacts.VideoPath("j1"),
		AudioPath:      artifacts.AudioPath("j1"),
		TranscriptPath: artifacts.TranscriptPath("j1"),
	}
	touch(t, job.VideoPath)
	touch(t, job.AudioPath)
	touch(t, job.TranscriptPath)

	artifacts.RetireJobIntermediates(job)
	if _, err := os.Stat(job.AudioPath); !os.IsNotExist(err) {
		t.Fatalf("audio must be retired with intermediates")
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		t.Fatalf("video must survive intermediate retirement: %v", err)
	}

	artifacts.RetireJobArtifacts(job)
	for _, p := range []string{job.VideoPath, job.AudioPath, job.TranscriptPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s retired, stat err %v", p, err)
		}
	}
}

func TestRetireClipArtifacts(t *testing.T) {
	artifacts := testArtifacts(t)

	clip := &types.Clip{
		ID:            "c1",
		OutputPath:    artifacts.ClipPath("c1"),
		ThumbnailPath: artifacts.ThumbnailPath("c1"),
	}
	touch(t, clip.OutputPath)
	touch(t, clip.ThumbnailPath)

	artifacts.RetireClipArtifacts(clip)
	for _, p := range []string{clip.OutputPath, clip.ThumbnailPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s retired, stat err %v", p, err)
		}
	}
}
