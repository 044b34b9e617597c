package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testJob(id, url string) *types.Job {
	return &types.Job{
		ID:           id,
		SourceURL:    url,
		VideoQuality: "1080p",
		AspectRatio:  "9:16",
	}
}

func TestJobLifecycle(t *testing.T) {
	repo := testRepo(t)

	job := testJob("job1", "https://youtube.com/watch?v=abcdefghijk")
	if err := repo.CreateJob(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != types.StatusPending {
		t.Fatalf("expected default status pending, got %q", job.Status)
	}

	got, err := repo.GetJob("job1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.SourceURL != job.SourceURL || got.Status != types.StatusPending {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	rows, err := repo.UpdateJobStatus("job1", types.StatusDownloading, 10, "")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row updated, got %d", rows)
	}

	if _, err := repo.SetJobSourceInfo("job1", "A Title", 120); err != nil {
		t.Fatalf("set source info: %v", err)
	}
	if _, err := repo.SetJobPaths("job1", "uploads/v.mp4", "", ""); err != nil {
		t.Fatalf("set video path: %v", err)
	}
	if _, err := repo.SetJobPaths("job1", "", "temp/a.wav", "uploads/t.json"); err != nil {
		t.Fatalf("set audio path: %v", err)
	}

	got, err = repo.GetJob("job1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Title != "A Title" || got.Duration != 120 {
		t.Fatalf("source info not persisted: %+v", got)
	}
	// Empty path arguments must not clobber previously stored values.
	if got.VideoPath != "uploads/v.mp4" || got.AudioPath != "temp/a.wav" || got.TranscriptPath != "uploads/t.json" {
		t.Fatalf("paths not persisted: %+v", got)
	}

	if _, err := repo.UpdateJobStatus("job1", types.StatusFailed, 0, "download failed"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	got, _ = repo.GetJob("job1")
	if got.Status != types.StatusFailed || got.ErrorMessage != "download failed" {
		t.Fatalf("failure not recorded: %+v", got)
	}
}

func TestGetJob_Missing(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.GetJob("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestFindActiveJobBySource(t *testing.T) {
	repo := testRepo(t)
	url := "https://youtube.com/watch?v=abcdefghijk"

	active, err := repo.FindActiveJobBySource(url)
	if err != nil || active != nil {
		t.Fatalf("expected no active job, got %v, %v", active, err)
	}

	if err := repo.CreateJob(testJob("job1", url)); err != nil {
		t.Fatalf("create job: %v", err)
	}
	active, err = repo.FindActiveJobBySource(url)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active == nil || active.ID != "job1" {
		t.Fatalf("expected job1 active, got %+v", active)
	}

	// Terminal states no longer block resubmission.
	if _, err := repo.UpdateJobStatus("job1", types.StatusCompleted, 100, ""); err != nil {
		t.Fatalf("complete job: %v", err)
	}
	active, err = repo.FindActiveJobBySource(url)
	if err != nil || active != nil {
		t.Fatalf("completed job must not count as active, got %v, %v", active, err)
	}
}

func TestSegments(t *testing.T) {
	repo := testRepo(t)
	if err := repo.CreateJob(testJob("job1", "u")); err != nil {
		t.Fatalf("create job: %v", err)
	}

	segments := []*types.TranscriptSegment{
		{JobID: "job1", StartTime: 0, EndTime: 30, Text: "first window text"},
		{JobID: "job1", StartTime: 30, EndTime: 60, Text: "second window text"},
	}
	if err := repo.InsertSegments(segments); err != nil {
		t.Fatalf("insert segments: %v", err)
	}
	for i, seg := range segments {
		if seg.ID == 0 {
			t.Fatalf("segment %d did not receive an id", i)
		}
	}

	segments[0].EngagementScore = 0.8
	segments[0].OverallScore = 0.7
	segments[0].Emotions = []string{"humor", "surprise"}
	segments[0].Keywords = []string{"first", "window"}
	segments[0].AnalysisNotes = "notes"
	if err := repo.UpdateSegmentScores(segments[0]); err != nil {
		t.Fatalf("update scores: %v", err)
	}

	got, err := repo.SegmentsByJob("job1")
	if err != nil {
		t.Fatalf("segments by job: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0].StartTime != 0 || got[1].StartTime != 30 {
		t.Fatalf("expected start-time order, got %v then %v", got[0].StartTime, got[1].StartTime)
	}
	if got[0].OverallScore != 0.7 || len(got[0].Emotions) != 2 || got[0].Keywords[1] != "window" {
		t.Fatalf("scores not round-tripped: %+v", got[0])
	}
}

func TestClips(t *testing.T) {
	repo := testRepo(t)
	if err := repo.CreateJob(testJob("job1", "u")); err != nil {
		t.Fatalf("create job: %v", err)
	}

	low := &types.Clip{ID: "clip-low", JobID: "job1", StartTime: 0, EndTime: 30, Duration: 30, OverallScore: 0.5}
	high := &types.Clip{ID: "clip-high", JobID: "job1", StartTime: 30, EndTime: 60, Duration: 30, OverallScore: 0.9,
		Title: "T", Tags: []string{"shorts", "viral"}}
	for _, clip := range []*types.Clip{low, high} {
		if err := repo.CreateClip(clip); err != nil {
			t.Fatalf("create clip: %v", err)
		}
	}
	if low.UploadStatus != types.UploadPending {
		t.Fatalf("expected default upload status pending, got %q", low.UploadStatus)
	}

	clips, err := repo.ClipsByJob("job1")
	if err != nil {
		t.Fatalf("clips by job: %v", err)
	}
	if len(clips) != 2 || clips[0].ID != "clip-high" {
		t.Fatalf("expected best score first, got %+v", clips)
	}
	if len(clips[0].Tags) != 2 {
		t.Fatalf("tags not round-tripped: %+v", clips[0])
	}

	if err := repo.SetClipPaths("clip-high", "outputs/s.mp4", "outputs/s.jpg"); err != nil {
		t.Fatalf("set clip paths: %v", err)
	}

	if _, err := repo.UpdateClipUpload("clip-high", types.UploadCompleted, "vid123", ""); err != nil {
		t.Fatalf("update clip upload: %v", err)
	}
	got, err := repo.GetClip("clip-high")
	if err != nil {
		t.Fatalf("get clip: %v", err)
	}
	if got.UploadStatus != types.UploadCompleted || got.RemoteVideoID != "vid123" {
		t.Fatalf("upload result not persisted: %+v", got)
	}

	n, err := repo.CountUnpublishedClips("job1")
	if err != nil {
		t.Fatalf("count unpublished: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unpublished clip, got %d", n)
	}

	if _, err := repo.UpdateClipUpload("clip-low", types.UploadCompleted, "vid456", ""); err != nil {
		t.Fatalf("update clip upload: %v", err)
	}
	if n, _ := repo.CountUnpublishedClips("job1"); n != 0 {
		t.Fatalf("expected 0 unpublished clips, got %d", n)
	}
}

func TestDeleteJob_CascadesAndReturnsPaths(t *testing.T) {
	repo := testRepo(t)

	job := testJob("job1", "u")
	job.VideoPath = "uploads/v.mp4"
	job.AudioPath = "temp/a.wav"
	if err := repo.CreateJob(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := repo.InsertSegments([]*types.TranscriptSegment{
		{JobID: "job1", StartTime: 0, EndTime: 30, Text: "text"},
	}); err != nil {
		t.Fatalf("insert segments: %v", err)
	}
	clip := &types.Clip{ID: "clip1", JobID: "job1", StartTime: 0, EndTime: 30, Duration: 30,
		OutputPath: "outputs/s.mp4", ThumbnailPath: "outputs/s.jpg"}
	if err := repo.CreateClip(clip); err != nil {
		t.Fatalf("create clip: %v", err)
	}

	paths, err := repo.DeleteJob("job1")
	if err != nil {
		t.Fatalf("delete job: %v", err)
	}
	want := map[string]bool{
		"uploads/v.mp4": true, "temp/a.wav": true,
		"outputs/s.mp4": true, "outputs/s.jpg": true,
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d owned paths, got %v", len(want), paths)
	}
	for _, p := range paths {
		if !want[p] {
			t.Fatalf("unexpected path %q", p)
		}
	}

	if _, err := repo.GetJob("job1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("job must be gone, got %v", err)
	}
	if segs, _ := repo.SegmentsByJob("job1"); len(segs) != 0 {
		t.Fatalf("segments must cascade, got %d", len(segs))
	}
	if clips, _ := repo.ClipsByJob("job1"); len(clips) != 0 {
		t.Fatalf("clips must cascade, got %d", len(clips))
	}

	// Concurrent-writer behavior after deletion: zero rows, no error.
	rows, err := repo.UpdateJobStatus("job1", types.StatusAnalyzing, 50, "")
	if err != nil {
		t.Fatalf("update after delete: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for deleted job, got %d", rows)
	}

	// Deleting again is a no-op.
	paths, err = repo.DeleteJob("job1")
	if err != nil || paths != nil {
		t.Fatalf("expected nil, nil for already-deleted job, got %v, %v", paths, err)
	}
}

func TestCredentials(t *testing.T) {
	repo := testRepo(t)

	cred, err := repo.GetCredential("user@example.com")
	if err != nil || cred != nil {
		t.Fatalf("expected nil for unknown user, got %v, %v", cred, err)
	}

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := repo.UpsertCredential(&types.Credential{
		UserEmail:    "user@example.com",
		AccessToken:  "access1",
		RefreshToken: "refresh1",
		TokenExpires: expires,
		ChannelTitle: "My Channel",
	}); err != nil {
		t.Fatalf("upsert credential: %v", err)
	}

	cred, err = repo.GetCredential("user@example.com")
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if cred.AccessToken != "access1" || cred.RefreshToken != "refresh1" || cred.ChannelTitle != "My Channel" {
		t.Fatalf("credential not round-tripped: %+v", cred)
	}

	// Re-authorization without a refresh token keeps the stored one.
	if err := repo.UpsertCredential(&types.Credential{
		UserEmail:   "user@example.com",
		AccessToken: "access2",
	}); err != nil {
		t.Fatalf("upsert credential: %v", err)
	}
	cred, _ = repo.GetCredential("user@example.com")
	if cred.AccessToken != "access2" {
		t.Fatalf("access token not replaced: %+v", cred)
	}
	if cred.RefreshToken != "refresh1" {
		t.Fatalf("refresh token must survive empty upsert, got %q", cred.RefreshToken)
	}

	newExpires := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	if err := repo.UpdateCredentialToken("user@example.com", "access3", newExpires); err != nil {
		t.Fatalf("update token: %v", err)
	}
	cred, _ = repo.GetCredential("user@example.com")
	if cred.AccessToken != "access3" {
		t.Fatalf("refreshed token not persisted: %+v", cred)
	}

	if err := repo.DeleteCredential("user@example.com"); err != nil {
		t.Fatalf("delete credential: %v", err)
	}
	cred, _ = repo.GetCredential("user@example.com")
	if cred != nil {
		t.Fatalf("credential must be gone, got %+v", cred)
	}
}

func TestKnownFilePaths(t *testing.T) {
	repo := testRepo(t)

	job := testJob("job1", "u")
	job.VideoPath = "uploads/v.mp4"
	job.TranscriptPath = "uploads/t.json"
	if err := repo.CreateJob(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := repo.CreateClip(&types.Clip{ID: "clip1", JobID: "job1",
		OutputPath: "outputs/s.mp4"}); err != nil {
		t.Fatalf("create clip: %v", err)
	}

	known, err := repo.KnownFilePaths()
	if err != nil {
		t.Fatalf("known file paths: %v", err)
	}
	for _, p := range []string{"uploads/v.mp4", "uploads/t.json", "outputs/s.mp4"} {
		if !known[p] {
			t.Fatalf("expected %q in known paths %v", p, known)
		}
	}
	if known[""] {
		t.Fatalf("empty paths must not be tracked")
	}
}
