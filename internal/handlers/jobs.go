package handlers

import (
	"database/sql"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/clipforge/internal/pipeline"
	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Accepts watch, embed, short-link and nocookie URL shapes with an 11-char id.
var sourceURLPattern = regexp.MustCompile(
	`(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/` +
		`(watch\?v=|embed/|v/|.+\?v=)?([^&=%\?]{11})`)

// Human-readable text per job state, for polling clients.
var statusTexts = map[string]string{
	types.StatusPending:      "Initializing...",
	types.StatusDownloading:  "Downloading video in high quality...",
	types.StatusTranscribing: "Extracting audio and transcribing...",
	types.StatusAnalyzing:    "Analyzing content...",
	types.StatusEditing:      "Generating vertical shorts...",
	types.StatusUploading:    "Uploading to YouTube...",
	types.StatusCompleted:    "Completed successfully!",
	types.StatusFailed:       "Processing failed",
}

// StatusText returns the display text for a job status.
func StatusText(status string) string {
	if text, ok := statusTexts[status]; ok {
		return text
	}
	return "Unknown status"
}

// JobHandler handles job submission, status, listing and deletion.
type JobHandler struct {
	repo       *storage.Repository
	artifacts  *storage.Artifacts
	workerPool *pipeline.WorkerPool
}

// NewJobHandler creates a new job handler.
func NewJobHandler(repo *storage.Repository, artifacts *storage.Artifacts,
	workerPool *pipeline.WorkerPool) *JobHandler {
	return &JobHandler{
		repo:       repo,
		artifacts:  artifacts,
		workerPool: workerPool,
	}
}

// SubmitRequest represents the job submission body.
type SubmitRequest struct {
	URL          string `json:"url"`
	VideoQuality string `json:"video_quality"`
	AspectRatio  string `json:"aspect_ratio"`
	UserEmail    string `json:"user_email"`
}

// Submit validates a source URL and creates a processing job.
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Please enter a YouTube URL",
			"code":  "ERR_NO_URL",
		})
	}
	if !sourceURLPattern.MatchString(req.URL) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Please enter a valid YouTube URL",
			"code":  "ERR_INVALID_URL",
		})
	}

	if req.VideoQuality == "" {
		req.VideoQuality = "1080p"
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "9:16"
	}

	// Reject duplicates while the same source is still in flight.
	existing, err := h.repo.FindActiveJobBySource(req.URL)
	if err != nil {
		log.Printf("Failed to check for existing job: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to check existing jobs",
			"code":  "ERR_DATABASE",
		})
	}
	if existing != nil {
		return c.Status(409).JSON(fiber.Map{
			"error":  "This video is already being processed",
			"code":   "ERR_DUPLICATE",
			"job_id": existing.ID,
		})
	}

	job := &types.Job{
		ID:           uuid.New().String(),
		SourceURL:    req.URL,
		VideoQuality: req.VideoQuality,
		AspectRatio:  req.AspectRatio,
		UserEmail:    req.UserEmail,
		Status:       types.StatusPending,
	}
	if err := h.repo.CreateJob(job); err != nil {
		log.Printf("Failed to create job: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to create job",
			"code":  "ERR_DATABASE",
		})
	}

	h.workerPool.Enqueue(job.ID)

	return c.JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Video processing started! This may take several minutes.",
	})
}

// Status returns the current state of one job.
func (h *JobHandler) Status(c *fiber.Ctx) error {
	job, err := h.repo.GetJob(c.Params("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Job not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load job",
			"code":  "ERR_DATABASE",
		})
	}

	clips, err := h.repo.ClipsByJob(job.ID)
	if err != nil {
		log.Printf("Failed to count clips for job %s: %v", job.ID, err)
	}

	return c.JSON(fiber.Map{
		"job_id":              job.ID,
		"status":              job.Status,
		"progress":            job.Progress,
		"error_message":       job.ErrorMessage,
		"title":               job.Title,
		"clips_count":         len(clips),
		"current_status_text": StatusText(job.Status),
	})
}

// List returns recent jobs, newest first.
func (h *JobHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	jobs, err := h.repo.ListJobs(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to list jobs",
			"code":  "ERR_DATABASE",
		})
	}

	out := make([]fiber.Map, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, fiber.Map{
			"job_id":     job.ID,
			"url":        job.SourceURL,
			"title":      job.Title,
			"status":     job.Status,
			"progress":   job.Progress,
			"created_at": job.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"jobs": out})
}

// Delete removes a job, its clips and every file they own.
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("id")

	paths, err := h.repo.DeleteJob(jobID)
	if err != nil {
		log.Printf("Failed to delete job %s: %v", jobID, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete job",
			"code":  "ERR_DATABASE",
		})
	}
	h.artifacts.Retire(paths...)

	return c.JSON(fiber.Map{
		"message": "Job and associated files deleted successfully",
	})
}
