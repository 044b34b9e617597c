package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
	"github.com/codebuildervaibhav/clipforge/internal/upload"
)

// ClipHandler serves rendered clips: listing, download and publish requests.
type ClipHandler struct {
	repo        *storage.Repository
	coordinator *upload.Coordinator
}

// NewClipHandler creates a new clip handler. coordinator may be nil when the
// publish platform is not configured.
func NewClipHandler(repo *storage.Repository, coordinator *upload.Coordinator) *ClipHandler {
	return &ClipHandler{
		repo:        repo,
		coordinator: coordinator,
	}
}

// ListByJob returns the clips of one job, best score first.
func (h *ClipHandler) ListByJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	job, err := h.repo.GetJob(jobID)
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
	if job.Status != types.StatusCompleted {
		return c.Status(409).JSON(fiber.Map{
			"error": "Video processing is not yet complete",
			"code":  "ERR_NOT_READY",
		})
	}

	clips, err := h.repo.ClipsByJob(jobID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to list clips",
			"code":  "ERR_DATABASE",
		})
	}

	out := make([]fiber.Map, 0, len(clips))
	for _, clip := range clips {
		out = append(out, fiber.Map{
			"clip_id":         clip.ID,
			"title":           clip.Title,
			"description":     clip.Description,
			"tags":            clip.Tags,
			"start_time":      clip.StartTime,
			"end_time":        clip.EndTime,
			"duration":        clip.Duration,
			"overall_score":   clip.OverallScore,
			"emotions":        clip.Emotions,
			"keywords":        clip.Keywords,
			"upload_status":   clip.UploadStatus,
			"remote_video_id": clip.RemoteVideoID,
			"upload_error":    clip.UploadError,
			"has_file":        clip.OutputPath != "",
			"has_thumbnail":   clip.ThumbnailPath != "",
		})
	}
	return c.JSON(fiber.Map{
		"job_id": jobID,
		"title":  job.Title,
		"clips":  out,
	})
}

// Download streams the rendered clip file as an attachment.
func (h *ClipHandler) Download(c *fiber.Ctx) error {
	clip, err := h.repo.GetClip(c.Params("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Clip not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load clip",
			"code":  "ERR_DATABASE",
		})
	}

	if clip.OutputPath == "" {
		return c.Status(404).JSON(fiber.Map{
			"error": "Short video file not found",
			"code":  "ERR_NO_FILE",
		})
	}
	if _, err := os.Stat(clip.OutputPath); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Short video file not found",
			"code":  "ERR_NO_FILE",
		})
	}

	name := clip.Title
	if name == "" {
		name = "short"
	}
	return c.Download(clip.OutputPath, fmt.Sprintf("%s_%s.mp4", name, clip.ID))
}

// UploadRequest represents the publish request body.
type UploadRequest struct {
	UserEmail string `json:"user_email"`
}

// Upload queues a clip for publishing on the user's channel.
func (h *ClipHandler) Upload(c *fiber.Ctx) error {
	if h.coordinator == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "YouTube publishing is not configured",
			"code":  "ERR_UPLOAD_DISABLED",
		})
	}

	clipID := c.Params("id")
	if _, err := h.repo.GetClip(clipID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Clip not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load clip",
			"code":  "ERR_DATABASE",
		})
	}

	var req UploadRequest
	if err := c.BodyParser(&req); err != nil || req.UserEmail == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "user_email is required",
			"code":  "ERR_NO_USER",
		})
	}

	if err := h.coordinator.Enqueue(clipID, req.UserEmail); err != nil {
		if errors.Is(err, upload.ErrNoCredentials) {
			return c.Status(403).JSON(fiber.Map{
				"error": "Please connect your YouTube account first",
				"code":  "ERR_NOT_CONNECTED",
			})
		}
		log.Printf("Failed to queue upload for clip %s: %v", clipID, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to queue upload",
			"code":  "ERR_QUEUE",
		})
	}

	return c.JSON(fiber.Map{
		"clip_id": clipID,
		"message": "Upload started! This may take a few minutes.",
	})
}
