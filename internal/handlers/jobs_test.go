package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/clipforge/internal/pipeline"
	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

func testApp(t *testing.T) (*fiber.App, *storage.Repository) {
	t.Helper()
	tmp := t.TempDir()

	repo, err := storage.NewRepository(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	artifacts, err := storage.NewArtifacts(
		filepath.Join(tmp, "uploads"),
		filepath.Join(tmp, "temp"),
		filepath.Join(tmp, "outputs"),
	)
	if err != nil {
		t.Fatalf("new artifacts: %v", err)
	}

	// Workers are never started: submissions only land on the queue.
	workerPool := pipeline.NewWorkerPool(1, nil)
	handler := NewJobHandler(repo, artifacts, workerPool)

	app := fiber.New()
	app.Post("/jobs", handler.Submit)
	app.Get("/jobs", handler.List)
	app.Get("/jobs/:id", handler.Status)
	app.Delete("/jobs/:id", handler.Delete)
	return app, repo
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestSubmit_CreatesJob(t *testing.T) {
	app, repo := testApp(t)

	resp := postJSON(t, app, "/jobs", SubmitRequest{
		URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("expected job_id in response, got %v", body)
	}

	job, err := repo.GetJob(jobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Status != types.StatusPending {
		t.Fatalf("expected pending, got %q", job.Status)
	}
	if job.VideoQuality != "1080p" || job.AspectRatio != "9:16" {
		t.Fatalf("defaults not applied: %+v", job)
	}
}

func TestSubmit_RejectsBadURLs(t *testing.T) {
	app, _ := testApp(t)

	cases := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"not a url", "not a url"},
		{"wrong host", "https://vimeo.com/12345678901"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, "/jobs", SubmitRequest{URL: tc.url})
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400 for %q, got %d", tc.url, resp.StatusCode)
			}
		})
	}
}

func TestSubmit_RejectsDuplicateActiveSource(t *testing.T) {
	app, repo := testApp(t)
	url := "https://youtu.be/dQw4w9WgXcQ"

	resp := postJSON(t, app, "/jobs", SubmitRequest{URL: url})
	if resp.StatusCode != 200 {
		t.Fatalf("first submission failed: %d", resp.StatusCode)
	}
	first := decodeBody(t, resp)

	resp = postJSON(t, app, "/jobs", SubmitRequest{URL: url})
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}
	dup := decodeBody(t, resp)
	if dup["job_id"] != first["job_id"] {
		t.Fatalf("duplicate must point at the active job, got %v", dup)
	}

	// Once the job is terminal the same URL is accepted again.
	if _, err := repo.UpdateJobStatus(first["job_id"].(string), types.StatusFailed, 0, "x"); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	resp = postJSON(t, app, "/jobs", SubmitRequest{URL: url})
	if resp.StatusCode != 200 {
		t.Fatalf("expected resubmission accepted, got %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	app, repo := testApp(t)

	if err := repo.CreateJob(&types.Job{ID: "job1", SourceURL: "u"}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := repo.UpdateJobStatus("job1", types.StatusAnalyzing, 50, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/job1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "analyzing" || body["progress"] != float64(50) {
		t.Fatalf("unexpected status body: %v", body)
	}
	if body["current_status_text"] == "" {
		t.Fatalf("expected status text")
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown job, got %d", resp.StatusCode)
	}
}

func TestDelete(t *testing.T) {
	app, repo := testApp(t)

	if err := repo.CreateJob(&types.Job{ID: "job1", SourceURL: "u"}); err != nil {
		t.Fatalf("create job: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/jobs/job1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, err := repo.GetJob("job1"); err == nil {
		t.Fatalf("job must be deleted")
	}
}

func TestStatusText(t *testing.T) {
	if got := StatusText(types.StatusDownloading); got != "Downloading video in high quality..." {
		t.Fatalf("unexpected text %q", got)
	}
	if got := StatusText("bogus"); got != "Unknown status" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
