package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Repository handles SQLite persistence for jobs, segments, clips and
// credentials. Every mutation is a single statement, so readers polling job
// progress only ever see committed values.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database at dbPath.
func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		video_quality TEXT NOT NULL DEFAULT '1080p',
		aspect_ratio TEXT NOT NULL DEFAULT '9:16',
		user_email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		progress INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		video_path TEXT NOT NULL DEFAULT '',
		audio_path TEXT NOT NULL DEFAULT '',
		transcript_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcript_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		text TEXT NOT NULL,
		engagement_score REAL NOT NULL DEFAULT 0,
		emotion_score REAL NOT NULL DEFAULT 0,
		viral_potential REAL NOT NULL DEFAULT 0,
		quotability REAL NOT NULL DEFAULT 0,
		overall_score REAL NOT NULL DEFAULT 0,
		emotions TEXT NOT NULL DEFAULT '[]',
		keywords TEXT NOT NULL DEFAULT '[]',
		analysis_notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS clips (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		duration REAL NOT NULL,
		engagement_score REAL NOT NULL DEFAULT 0,
		emotion_score REAL NOT NULL DEFAULT 0,
		viral_potential REAL NOT NULL DEFAULT 0,
		quotability REAL NOT NULL DEFAULT 0,
		overall_score REAL NOT NULL DEFAULT 0,
		emotions TEXT NOT NULL DEFAULT '[]',
		keywords TEXT NOT NULL DEFAULT '[]',
		analysis_notes TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		output_path TEXT NOT NULL DEFAULT '',
		thumbnail_path TEXT NOT NULL DEFAULT '',
		upload_status TEXT NOT NULL DEFAULT 'pending',
		remote_video_id TEXT NOT NULL DEFAULT '',
		upload_error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credentials (
		user_email TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expires DATETIME,
		scope TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		channel_title TEXT NOT NULL DEFAULT '',
		channel_thumbnail TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source_url, status);
	CREATE INDEX IF NOT EXISTS idx_segments_job ON transcript_segments(job_id);
	CREATE INDEX IF NOT EXISTS idx_clips_job ON clips(job_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &Repository{db: db}, nil
}

// CreateJob inserts a new job record.
func (r *Repository) CreateJob(job *types.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = types.StatusPending
	}

	_, err := r.db.Exec(`
	INSERT INTO jobs (id, source_url, title, duration, video_quality, aspect_ratio,
		user_email, status, progress, error_message, video_path, audio_path,
		transcript_path, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceURL, job.Title, job.Duration, job.VideoQuality,
		job.AspectRatio, job.UserEmail, job.Status, job.Progress, job.ErrorMessage,
		job.VideoPath, job.AudioPath, job.TranscriptPath, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %v", err)
	}
	return nil
}

const jobColumns = `id, source_url, title, duration, video_quality, aspect_ratio,
	user_email, status, progress, error_message, video_path, audio_path,
	transcript_path, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*types.Job, error) {
	var job types.Job
	err := row.Scan(&job.ID, &job.SourceURL, &job.Title, &job.Duration,
		&job.VideoQuality, &job.AspectRatio, &job.UserEmail, &job.Status,
		&job.Progress, &job.ErrorMessage, &job.VideoPath, &job.AudioPath,
		&job.TranscriptPath, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob retrieves a job by ID. Returns sql.ErrNoRows if missing.
func (r *Repository) GetJob(id string) (*types.Job, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ListJobs returns the most recent jobs.
func (r *Repository) ListJobs(limit int) ([]*types.Job, error) {
	rows, err := r.db.Query(`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %v", err)
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FindActiveJobBySource returns an in-flight job for the same source URL, if
// any. This is the submission-boundary dedup check.
func (r *Repository) FindActiveJobBySource(sourceURL string) (*types.Job, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types.ActiveJobStatuses)), ",")
	args := []any{sourceURL}
	for _, s := range types.ActiveJobStatuses {
		args = append(args, s)
	}
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs
		WHERE source_url = ? AND status IN (`+placeholders+`)
		ORDER BY created_at DESC LIMIT 1`, args...)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// UpdateJobStatus sets status and progress, recording the error message when
// non-empty. Returns the number of rows updated; zero means the job has been
// deleted and the caller should stop writing.
func (r *Repository) UpdateJobStatus(id, status string, progress int, errorMessage string) (int64, error) {
	var res sql.Result
	var err error
	if errorMessage != "" {
		res, err = r.db.Exec(`UPDATE jobs SET status = ?, progress = ?, error_message = ?, updated_at = ? WHERE id = ?`,
			status, progress, errorMessage, time.Now().UTC(), id)
	} else {
		res, err = r.db.Exec(`UPDATE jobs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`,
			status, progress, time.Now().UTC(), id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update job status: %v", err)
	}
	return res.RowsAffected()
}

// SetJobSourceInfo records the resolved title and duration.
func (r *Repository) SetJobSourceInfo(id, title string, duration float64) (int64, error) {
	res, err := r.db.Exec(`UPDATE jobs SET title = ?, duration = ?, updated_at = ? WHERE id = ?`,
		title, duration, time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to set job source info: %v", err)
	}
	return res.RowsAffected()
}

// SetJobPaths records artifact paths; empty arguments leave the stored value
// untouched.
func (r *Repository) SetJobPaths(id, videoPath, audioPath, transcriptPath string) (int64, error) {
	res, err := r.db.Exec(`UPDATE jobs SET
		video_path = CASE WHEN ? != '' THEN ? ELSE video_path END,
		audio_path = CASE WHEN ? != '' THEN ? ELSE audio_path END,
		transcript_path = CASE WHEN ? != '' THEN ? ELSE transcript_path END,
		updated_at = ?
		WHERE id = ?`,
		videoPath, videoPath, audioPath, audioPath, transcriptPath, transcriptPath,
		time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to set job paths: %v", err)
	}
	return res.RowsAffected()
}

// DeleteJob removes a job and cascades to its transcript segments and clips.
// It returns every file path the deleted records owned so the caller can
// retire them. Safe to run while a pipeline worker is mid-stage: the worker's
// subsequent writes simply affect zero rows.
func (r *Repository) DeleteJob(id string) ([]string, error) {
	var paths []string

	job, err := r.GetJob(id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, p := range []string{job.VideoPath, job.AudioPath, job.TranscriptPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}

	clips, err := r.ClipsByJob(id)
	if err != nil {
		return nil, err
	}
	for _, clip := range clips {
		if clip.OutputPath != "" {
			paths = append(paths, clip.OutputPath)
		}
		if clip.ThumbnailPath != "" {
			paths = append(paths, clip.ThumbnailPath)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin delete: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM clips WHERE job_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete clips: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM transcript_segments WHERE job_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete segments: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete job: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %v", err)
	}
	return paths, nil
}

// InsertSegments stores a batch of transcript segments for a job.
func (r *Repository) InsertSegments(segments []*types.TranscriptSegment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO transcript_segments
		(job_id, start_time, end_time, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		res, err := stmt.Exec(seg.JobID, seg.StartTime, seg.EndTime, seg.Text)
		if err != nil {
			return fmt.Errorf("failed to insert segment: %v", err)
		}
		seg.ID, _ = res.LastInsertId()
	}
	return tx.Commit()
}

// SegmentsByJob returns all transcript segments for a job in start-time order.
func (r *Repository) SegmentsByJob(jobID string) ([]*types.TranscriptSegment, error) {
	rows, err := r.db.Query(`SELECT id, job_id, start_time, end_time, text,
		engagement_score, emotion_score, viral_potential, quotability, overall_score,
		emotions, keywords, analysis_notes
		FROM transcript_segments WHERE job_id = ? ORDER BY start_time`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %v", err)
	}
	defer rows.Close()

	var segments []*types.TranscriptSegment
	for rows.Next() {
		var seg types.TranscriptSegment
		var emotions, keywords string
		if err := rows.Scan(&seg.ID, &seg.JobID, &seg.StartTime, &seg.EndTime,
			&seg.Text, &seg.EngagementScore, &seg.EmotionScore, &seg.ViralPotential,
			&seg.Quotability, &seg.OverallScore, &emotions, &keywords,
			&seg.AnalysisNotes); err != nil {
			return nil, err
		}
		seg.Emotions = decodeStrings(emotions)
		seg.Keywords = decodeStrings(keywords)
		segments = append(segments, &seg)
	}
	return segments, rows.Err()
}

// UpdateSegmentScores records the analysis result for one segment.
func (r *Repository) UpdateSegmentScores(seg *types.TranscriptSegment) error {
	_, err := r.db.Exec(`UPDATE transcript_segments SET
		engagement_score = ?, emotion_score = ?, viral_potential = ?,
		quotability = ?, overall_score = ?, emotions = ?, keywords = ?,
		analysis_notes = ? WHERE id = ?`,
		seg.EngagementScore, seg.EmotionScore, seg.ViralPotential, seg.Quotability,
		seg.OverallScore, encodeStrings(seg.Emotions), encodeStrings(seg.Keywords),
		seg.AnalysisNotes, seg.ID)
	if err != nil {
		return fmt.Errorf("failed to update segment scores: %v", err)
	}
	return nil
}

// CreateClip inserts a new clip record.
func (r *Repository) CreateClip(clip *types.Clip) error {
	clip.CreatedAt = time.Now().UTC()
	if clip.UploadStatus == "" {
		clip.UploadStatus = types.UploadPending
	}
	_, err := r.db.Exec(`INSERT INTO clips (id, job_id, start_time, end_time,
		duration, engagement_score, emotion_score, viral_potential, quotability,
		overall_score, emotions, keywords, analysis_notes, title, description,
		tags, output_path, thumbnail_path, upload_status, remote_video_id,
		upload_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID, clip.JobID, clip.StartTime, clip.EndTime, clip.Duration,
		clip.EngagementScore, clip.EmotionScore, clip.ViralPotential,
		clip.Quotability, clip.OverallScore, encodeStrings(clip.Emotions),
		encodeStrings(clip.Keywords), clip.AnalysisNotes, clip.Title,
		clip.Description, encodeStrings(clip.Tags), clip.OutputPath,
		clip.ThumbnailPath, clip.UploadStatus, clip.RemoteVideoID,
		clip.UploadError, clip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create clip: %v", err)
	}
	return nil
}

const clipColumns = `id, job_id, start_time, end_time, duration,
	engagement_score, emotion_score, viral_potential, quotability, overall_score,
	emotions, keywords, analysis_notes, title, description, tags,
	output_path, thumbnail_path, upload_status, remote_video_id, upload_error,
	created_at`

func scanClip(row interface{ Scan(...any) error }) (*types.Clip, error) {
	var clip types.Clip
	var emotions, keywords, tags string
	err := row.Scan(&clip.ID, &clip.JobID, &clip.StartTime, &clip.EndTime,
		&clip.Duration, &clip.EngagementScore, &clip.EmotionScore,
		&clip.ViralPotential, &clip.Quotability, &clip.OverallScore,
		&emotions, &keywords, &clip.AnalysisNotes, &clip.Title, &clip.Description,
		&tags, &clip.OutputPath, &clip.ThumbnailPath, &clip.UploadStatus,
		&clip.RemoteVideoID, &clip.UploadError, &clip.CreatedAt)
	if err != nil {
		return nil, err
	}
	clip.Emotions = decodeStrings(emotions)
	clip.Keywords = decodeStrings(keywords)
	clip.Tags = decodeStrings(tags)
	return &clip, nil
}

// GetClip retrieves a clip by ID.
func (r *Repository) GetClip(id string) (*types.Clip, error) {
	row := r.db.QueryRow(`SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	return scanClip(row)
}

// ClipsByJob returns all clips of a job, best score first.
func (r *Repository) ClipsByJob(jobID string) ([]*types.Clip, error) {
	rows, err := r.db.Query(`SELECT `+clipColumns+` FROM clips WHERE job_id = ? ORDER BY overall_score DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %v", err)
	}
	defer rows.Close()

	var clips []*types.Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// SetClipPaths records the rendered output and thumbnail paths.
func (r *Repository) SetClipPaths(id, outputPath, thumbnailPath string) error {
	_, err := r.db.Exec(`UPDATE clips SET output_path = ?, thumbnail_path = ? WHERE id = ?`,
		outputPath, thumbnailPath, id)
	if err != nil {
		return fmt.Errorf("failed to set clip paths: %v", err)
	}
	return nil
}

// UpdateClipUpload sets the upload status, recording the remote video id or
// the error message depending on outcome.
func (r *Repository) UpdateClipUpload(id, status, remoteVideoID, uploadError string) (int64, error) {
	res, err := r.db.Exec(`UPDATE clips SET upload_status = ?,
		remote_video_id = CASE WHEN ? != '' THEN ? ELSE remote_video_id END,
		upload_error = ? WHERE id = ?`,
		status, remoteVideoID, remoteVideoID, uploadError, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update clip upload: %v", err)
	}
	return res.RowsAffected()
}

// CountUnpublishedClips returns how many clips of a job have not reached the
// completed upload state. Zero means all shorts are published and job-level
// artifacts can be retired.
func (r *Repository) CountUnpublishedClips(jobID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM clips WHERE job_id = ? AND upload_status != ?`,
		jobID, types.UploadCompleted).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unpublished clips: %v", err)
	}
	return n, nil
}

// UpsertCredential stores or replaces a user's publish credential.
func (r *Repository) UpsertCredential(cred *types.Credential) error {
	cred.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(`INSERT INTO credentials (user_email, access_token,
		refresh_token, token_expires, scope, channel_id, channel_title,
		channel_thumbnail, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_email) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE credentials.refresh_token END,
			token_expires = excluded.token_expires,
			scope = excluded.scope,
			channel_id = excluded.channel_id,
			channel_title = excluded.channel_title,
			channel_thumbnail = excluded.channel_thumbnail,
			updated_at = excluded.updated_at`,
		cred.UserEmail, cred.AccessToken, cred.RefreshToken, cred.TokenExpires,
		cred.Scope, cred.ChannelID, cred.ChannelTitle, cred.ChannelThumbnail,
		cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %v", err)
	}
	return nil
}

// GetCredential retrieves a credential by user email. Returns nil when the
// user has never authorized.
func (r *Repository) GetCredential(userEmail string) (*types.Credential, error) {
	var cred types.Credential
	err := r.db.QueryRow(`SELECT user_email, access_token, refresh_token,
		token_expires, scope, channel_id, channel_title, channel_thumbnail,
		updated_at FROM credentials WHERE user_email = ?`, userEmail).Scan(
		&cred.UserEmail, &cred.AccessToken, &cred.RefreshToken, &cred.TokenExpires,
		&cred.Scope, &cred.ChannelID, &cred.ChannelTitle, &cred.ChannelThumbnail,
		&cred.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %v", err)
	}
	return &cred, nil
}

// UpdateCredentialToken persists a refreshed access token and expiry.
func (r *Repository) UpdateCredentialToken(userEmail, accessToken string, expires time.Time) error {
	_, err := r.db.Exec(`UPDATE credentials SET access_token = ?, token_expires = ?, updated_at = ? WHERE user_email = ?`,
		accessToken, expires, time.Now().UTC(), userEmail)
	if err != nil {
		return fmt.Errorf("failed to update credential token: %v", err)
	}
	return nil
}

// DeleteCredential removes a user's stored authorization.
func (r *Repository) DeleteCredential(userEmail string) error {
	_, err := r.db.Exec(`DELETE FROM credentials WHERE user_email = ?`, userEmail)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %v", err)
	}
	return nil
}

// KnownFilePaths returns every artifact path referenced by any job or clip.
// The cleanup sweep uses this to detect orphaned files.
func (r *Repository) KnownFilePaths() (map[string]bool, error) {
	known := make(map[string]bool)

	rows, err := r.db.Query(`SELECT video_path, audio_path, transcript_path FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query job paths: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a, b, c string
		if err := rows.Scan(&a, &b, &c); err != nil {
			return nil, err
		}
		for _, p := range []string{a, b, c} {
			if p != "" {
				known[p] = true
			}
		}
	}

	clipRows, err := r.db.Query(`SELECT output_path, thumbnail_path FROM clips`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clip paths: %v", err)
	}
	defer clipRows.Close()
	for clipRows.Next() {
		var a, b string
		if err := clipRows.Scan(&a, &b); err != nil {
			return nil, err
		}
		for _, p := range []string{a, b} {
			if p != "" {
				known[p] = true
			}
		}
	}
	return known, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func encodeStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
