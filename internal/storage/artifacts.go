package storage

import (
	"log"
	"os"
	"path/filepath"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Artifacts manages the on-disk layout for job media and the retirement of
// files that are no longer needed. Retirement is idempotent: a missing file
// is not an error, so the same trigger can fire from pipeline completion,
// upload completion and job deletion without coordination.
type Artifacts struct {
	uploadsDir string
	tempDir    string
	outputsDir string
}

// NewArtifacts creates the artifact manager and ensures its directories exist.
func NewArtifacts(uploadsDir, tempDir, outputsDir string) (*Artifacts, error) {
	for _, dir := range []string{uploadsDir, tempDir, outputsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &Artifacts{uploadsDir: uploadsDir, tempDir: tempDir, outputsDir: outputsDir}, nil
}

// UploadsDir is where source media and transcripts live.
func (a *Artifacts) UploadsDir() string { return a.uploadsDir }

// TempDir is where extracted audio and other working files live.
func (a *Artifacts) TempDir() string { return a.tempDir }

// OutputsDir is where rendered clips and thumbnails live.
func (a *Artifacts) OutputsDir() string { return a.outputsDir }

// VideoPath returns the target path for a job's downloaded source media.
func (a *Artifacts) VideoPath(jobID string) string {
	return filepath.Join(a.uploadsDir, "video_"+jobID+".mp4")
}

// AudioPath returns the target path for a job's extracted audio.
func (a *Artifacts) AudioPath(jobID string) string {
	return filepath.Join(a.tempDir, "audio_"+jobID+".wav")
}

// TranscriptPath returns the target path for a job's transcript manifest.
func (a *Artifacts) TranscriptPath(jobID string) string {
	return filepath.Join(a.uploadsDir, "transcript_"+jobID+".json")
}

// ClipPath returns the target path for a rendered clip.
func (a *Artifacts) ClipPath(clipID string) string {
	return filepath.Join(a.outputsDir, "short_"+clipID+".mp4")
}

// ThumbnailPath returns the target path for a clip thumbnail.
func (a *Artifacts) ThumbnailPath(clipID string) string {
	return filepath.Join(a.outputsDir, "short_"+clipID+"_thumb.jpg")
}

// Retire deletes the given files. Missing files are skipped silently; other
// failures are logged and do not stop the remaining deletions.
func (a *Artifacts) Retire(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to retire file %s: %v", path, err)
			}
			continue
		}
		log.Printf("Retired file: %s", path)
	}
}

// RetireJobIntermediates releases the working files a completed job no longer
// needs while keeping outputs needed for distribution. Best effort.
func (a *Artifacts) RetireJobIntermediates(job *types.Job) {
	a.Retire(job.AudioPath)
}

// RetireJobArtifacts releases every job-level file: source media, audio and
// transcript.
func (a *Artifacts) RetireJobArtifacts(job *types.Job) {
	a.Retire(job.VideoPath, job.AudioPath, job.TranscriptPath)
}

// RetireClipArtifacts releases a clip's rendered media and thumbnail. The
// clip's metadata record stays queryable afterward.
func (a *Artifacts) RetireClipArtifacts(clip *types.Clip) {
	a.Retire(clip.OutputPath, clip.ThumbnailPath)
}
