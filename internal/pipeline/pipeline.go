package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/clipforge/internal/analysis"
	"github.com/codebuildervaibhav/clipforge/internal/media"
	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/transcribe"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Acquirer resolves and downloads source media.
type Acquirer interface {
	Resolve(ctx context.Context, sourceURL string) (*types.SourceInfo, error)
	Fetch(ctx context.Context, sourceURL, quality, outputPath string) error
}

// MediaTool probes, extracts and renders media files.
type MediaTool interface {
	ProbeAudioStreams(ctx context.Context, mediaPath string) []types.AudioStream
	ExtractAudio(ctx context.Context, mediaPath string, streamIndex int, outputPath string) error
	RenderWindow(ctx context.Context, mediaPath string, startSec, endSec float64, outputPath string) error
	Thumbnail(ctx context.Context, clipPath, thumbnailPath string) error
}

// Transcriber turns extracted audio into timestamped speech. Optional.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcribe.SpokenSegment, string, error)
}

// Scorer analyzes segments and generates clip metadata. Never fails; the
// scoring client degrades internally.
type Scorer interface {
	Analyze(ctx context.Context, text string) *types.SegmentScores
	GenerateMetadata(ctx context.Context, segmentText, originalTitle string) *types.ClipMetadata
}

// errJobDeleted aborts a pipeline run when the job record disappeared under
// the worker. Not a failure: there is nothing left to mark failed.
var errJobDeleted = errors.New("job deleted")

// Pipeline runs the end-to-end stage sequence for one job. Stages are
// strictly sequential; any stage error fails the job and terminates the run.
type Pipeline struct {
	repo        *storage.Repository
	artifacts   *storage.Artifacts
	acquirer    Acquirer
	mediaTool   MediaTool
	transcriber Transcriber
	scorer      Scorer
}

// New creates a pipeline. transcriber may be nil; windows then carry
// placeholder text.
func New(repo *storage.Repository, artifacts *storage.Artifacts, acquirer Acquirer,
	mediaTool MediaTool, transcriber Transcriber, scorer Scorer) *Pipeline {
	return &Pipeline{
		repo:        repo,
		artifacts:   artifacts,
		acquirer:    acquirer,
		mediaTool:   mediaTool,
		transcriber: transcriber,
		scorer:      scorer,
	}
}

// Process runs every stage for the job. Each stage sets its status and a
// fixed progress checkpoint before doing the work, so observers see monotonic
// progress even through long stages.
func (p *Pipeline) Process(ctx context.Context, jobID string) {
	job, err := p.repo.GetJob(jobID)
	if err != nil {
		log.Printf("Job %s not found: %v", jobID, err)
		return
	}

	log.Printf("Starting processing for job %s: %s", jobID, job.SourceURL)

	if err := p.run(ctx, job); err != nil {
		if errors.Is(err, errJobDeleted) {
			log.Printf("Job %s was deleted mid-run, stopping", jobID)
			return
		}
		log.Printf("Error processing job %s: %v", jobID, err)
		if _, err := p.repo.UpdateJobStatus(jobID, types.StatusFailed, 0, err.Error()); err != nil {
			log.Printf("Failed to record failure for job %s: %v", jobID, err)
		}
		return
	}

	log.Printf("Successfully completed processing for job %s", jobID)
}

func (p *Pipeline) run(ctx context.Context, job *types.Job) error {
	// Stage 1: acquisition
	if err := p.setStage(job.ID, types.StatusDownloading, 10); err != nil {
		return err
	}
	videoPath, duration, title, err := p.acquire(ctx, job)
	if err != nil {
		return err
	}

	// Stage 2: audio extraction and segmentation
	if err := p.setStage(job.ID, types.StatusTranscribing, 30); err != nil {
		return err
	}
	if err := p.segment(ctx, job.ID, videoPath, duration); err != nil {
		return err
	}

	// Stage 3: scoring and selection
	if err := p.setStage(job.ID, types.StatusAnalyzing, 50); err != nil {
		return err
	}
	selected, err := p.analyze(ctx, job.ID)
	if err != nil {
		return err
	}

	// Stage 4: rendering, each clip an independent failure domain
	if err := p.setStage(job.ID, types.StatusEditing, 70); err != nil {
		return err
	}
	p.render(ctx, job.ID, videoPath, title, selected)

	if err := p.setStage(job.ID, types.StatusCompleted, 100); err != nil {
		return err
	}

	// Best-effort release of working files; never fails a completed job.
	if final, err := p.repo.GetJob(job.ID); err == nil {
		p.artifacts.RetireJobIntermediates(final)
	}
	return nil
}

// setStage commits the status/progress checkpoint. A zero-row update means
// the job was deleted concurrently and the run must stop.
func (p *Pipeline) setStage(jobID, status string, progress int) error {
	rows, err := p.repo.UpdateJobStatus(jobID, status, progress, "")
	if err != nil {
		return fmt.Errorf("failed to update job status: %v", err)
	}
	if rows == 0 {
		return errJobDeleted
	}
	return nil
}

func (p *Pipeline) acquire(ctx context.Context, job *types.Job) (videoPath string, duration float64, title string, err error) {
	info, err := p.acquirer.Resolve(ctx, job.SourceURL)
	if err != nil {
		return "", 0, "", err
	}

	rows, err := p.repo.SetJobSourceInfo(job.ID, info.Title, info.Duration)
	if err != nil {
		return "", 0, "", err
	}
	if rows == 0 {
		return "", 0, "", errJobDeleted
	}

	videoPath = p.artifacts.VideoPath(job.ID)
	if err := p.acquirer.Fetch(ctx, job.SourceURL, job.VideoQuality, videoPath); err != nil {
		return "", 0, "", err
	}
	if _, err := p.repo.SetJobPaths(job.ID, videoPath, "", ""); err != nil {
		return "", 0, "", err
	}
	return videoPath, info.Duration, info.Title, nil
}

func (p *Pipeline) segment(ctx context.Context, jobID, videoPath string, duration float64) error {
	streams := p.mediaTool.ProbeAudioStreams(ctx, videoPath)
	streamIndex := media.SelectAudioStream(streams)

	audioPath := p.artifacts.AudioPath(jobID)
	if err := p.mediaTool.ExtractAudio(ctx, videoPath, streamIndex, audioPath); err != nil {
		return err
	}

	// Real transcription when available; windows fall back to placeholder
	// text otherwise.
	var speech []transcribe.SpokenSegment
	language := "en"
	if p.transcriber != nil {
		var err error
		speech, language, err = p.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			log.Printf("Transcription unavailable for job %s, using time-based segments: %v", jobID, err)
			speech = nil
			language = "en"
		}
	}

	windows := transcribe.BuildWindows(jobID, duration, speech)
	if err := p.repo.InsertSegments(windows); err != nil {
		return err
	}

	transcriptPath := p.artifacts.TranscriptPath(jobID)
	if err := transcribe.WriteManifest(transcriptPath, language, duration, windows); err != nil {
		return err
	}

	rows, err := p.repo.SetJobPaths(jobID, "", audioPath, transcriptPath)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errJobDeleted
	}
	return nil
}

// analyze scores every segment and returns the selected set. A persistence
// failure during scoring falls back to duration-only selection rather than
// failing the job.
func (p *Pipeline) analyze(ctx context.Context, jobID string) ([]*types.TranscriptSegment, error) {
	segments, err := p.repo.SegmentsByJob(jobID)
	if err != nil {
		return nil, err
	}

	scoringFailed := false
	for _, seg := range segments {
		scores := p.scorer.Analyze(ctx, seg.Text)

		seg.EngagementScore = scores.Engagement
		seg.EmotionScore = scores.Emotion
		seg.ViralPotential = scores.Viral
		seg.Quotability = scores.Quotability
		seg.OverallScore = types.OverallScore(scores.Engagement, scores.Emotion, scores.Viral, scores.Quotability)
		seg.Emotions = scores.Emotions
		seg.Keywords = scores.Keywords
		seg.AnalysisNotes = scores.Reason

		if err := p.repo.UpdateSegmentScores(seg); err != nil {
			log.Printf("Failed to persist scores for segment %d: %v", seg.ID, err)
			scoringFailed = true
			break
		}
	}

	var selected []*types.TranscriptSegment
	if scoringFailed {
		selected = analysis.SelectByDuration(segments)
	} else {
		selected = analysis.SelectSegments(segments)
	}

	// Fallback paths assign fixed scores; keep the stored rows consistent.
	for _, seg := range selected {
		if err := p.repo.UpdateSegmentScores(seg); err != nil {
			log.Printf("Failed to persist selection score for segment %d: %v", seg.ID, err)
		}
	}

	log.Printf("Job %s: selected %d of %d segments", jobID, len(selected), len(segments))
	return selected, nil
}

// render generates one clip per selected segment. A per-clip failure is
// logged and skipped; it never aborts the remaining clips or the job.
func (p *Pipeline) render(ctx context.Context, jobID, videoPath, title string, selected []*types.TranscriptSegment) {
	for i, seg := range selected {
		if err := p.renderOne(ctx, jobID, videoPath, title, seg); err != nil {
			log.Printf("Failed to generate short %d for job %s: %v", i+1, jobID, err)
			continue
		}
		log.Printf("Generated short %d/%d for job %s", i+1, len(selected), jobID)
	}
}

func (p *Pipeline) renderOne(ctx context.Context, jobID, videoPath, title string, seg *types.TranscriptSegment) error {
	meta := p.scorer.GenerateMetadata(ctx, seg.Text, title)

	clip := &types.Clip{
		ID:              uuid.New().String(),
		JobID:           jobID,
		StartTime:       seg.StartTime,
		EndTime:         seg.EndTime,
		Duration:        seg.Duration(),
		EngagementScore: seg.EngagementScore,
		EmotionScore:    seg.EmotionScore,
		ViralPotential:  seg.ViralPotential,
		Quotability:     seg.Quotability,
		OverallScore:    seg.OverallScore,
		Emotions:        seg.Emotions,
		Keywords:        seg.Keywords,
		AnalysisNotes:   seg.AnalysisNotes,
		Title:           meta.Title,
		Description:     meta.Description,
		Tags:            meta.Tags,
	}
	if err := p.repo.CreateClip(clip); err != nil {
		return err
	}

	outputPath := p.artifacts.ClipPath(clip.ID)
	thumbnailPath := p.artifacts.ThumbnailPath(clip.ID)

	if err := p.mediaTool.RenderWindow(ctx, videoPath, seg.StartTime, seg.EndTime, outputPath); err != nil {
		return err
	}
	if err := p.mediaTool.Thumbnail(ctx, outputPath, thumbnailPath); err != nil {
		// A missing thumbnail does not block the clip.
		log.Printf("Failed to generate thumbnail for clip %s: %v", clip.ID, err)
		thumbnailPath = ""
	}

	return p.repo.SetClipPaths(clip.ID, outputPath, thumbnailPath)
}
