package handlers

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

const progressPollInterval = time.Second

// ProgressHandler streams job progress over a WebSocket so clients do not
// have to poll the status endpoint.
type ProgressHandler struct {
	repo *storage.Repository
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(repo *storage.Repository) *ProgressHandler {
	return &ProgressHandler{repo: repo}
}

type progressEvent struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	StatusText string `json:"status_text"`
	Error      string `json:"error,omitempty"`
}

// Handle pushes status snapshots until the job reaches a terminal state or
// the client disconnects. Only changed snapshots are sent.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	log.Printf("Progress stream opened for job %s", jobID)

	var last progressEvent
	for {
		job, err := h.repo.GetJob(jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.WriteJSON(progressEvent{JobID: jobID, Status: "deleted"})
			}
			return
		}

		event := progressEvent{
			JobID:      job.ID,
			Status:     job.Status,
			Progress:   job.Progress,
			StatusText: StatusText(job.Status),
			Error:      job.ErrorMessage,
		}
		if event != last {
			if err := c.WriteJSON(event); err != nil {
				return
			}
			last = event
		}

		if job.Status == types.StatusCompleted || job.Status == types.StatusFailed {
			return
		}
		time.Sleep(progressPollInterval)
	}
}
