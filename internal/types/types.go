package types

import "time"

// Job status constants. These are persisted and polled by clients, so the
// string values are a closed set and must never change.
const (
	StatusPending      = "pending"
	StatusDownloading  = "downloading"
	StatusTranscribing = "transcribing"
	StatusAnalyzing    = "analyzing"
	StatusEditing      = "editing"
	StatusUploading    = "uploading"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

// Clip upload status constants
const (
	UploadPending   = "pending"
	UploadUploading = "uploading"
	UploadCompleted = "completed"
	UploadFailed    = "failed"
)

// ActiveJobStatuses are the non-terminal job states. A duplicate submission
// for a source URL already in one of these states is rejected.
var ActiveJobStatuses = []string{
	StatusPending,
	StatusDownloading,
	StatusTranscribing,
	StatusAnalyzing,
	StatusEditing,
	StatusUploading,
}

// Job represents one user-submitted request to turn a source video into shorts.
type Job struct {
	ID           string
	SourceURL    string
	Title        string
	Duration     float64 // seconds
	VideoQuality string
	AspectRatio  string
	UserEmail    string

	Status       string
	Progress     int
	ErrorMessage string

	VideoPath      string
	AudioPath      string
	TranscriptPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TranscriptSegment is a fixed-length time window of the source with its
// analysis scores. Created during the transcribing stage, scored once during
// the analyzing stage, immutable afterward.
type TranscriptSegment struct {
	ID    int64
	JobID string

	StartTime float64
	EndTime   float64
	Text      string

	EngagementScore float64
	EmotionScore    float64
	ViralPotential  float64
	Quotability     float64
	OverallScore    float64

	Emotions      []string
	Keywords      []string
	AnalysisNotes string
}

// Duration returns the segment window length in seconds.
func (s *TranscriptSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// OverallScore computes the fixed weighted combination of the four sub-scores.
// Every stored overall score goes through this helper.
func OverallScore(engagement, emotion, viral, quotability float64) float64 {
	return engagement*0.3 + emotion*0.2 + viral*0.3 + quotability*0.2
}

// Clip is a rendered vertical short derived from one selected segment. The
// metadata record outlives its media file once the clip has been published.
type Clip struct {
	ID    string
	JobID string

	StartTime float64
	EndTime   float64
	Duration  float64

	EngagementScore float64
	EmotionScore    float64
	ViralPotential  float64
	Quotability     float64
	OverallScore    float64

	Emotions      []string
	Keywords      []string
	AnalysisNotes string

	Title       string
	Description string
	Tags        []string

	OutputPath    string
	ThumbnailPath string

	UploadStatus  string
	RemoteVideoID string
	UploadError   string

	CreatedAt time.Time
}

// Credential holds a user's stored authorization for the publish platform.
// A credential without a refresh token is unusable once TokenExpires has
// passed and requires re-authorization.
type Credential struct {
	UserEmail    string
	AccessToken  string
	RefreshToken string
	TokenExpires time.Time
	Scope        string

	ChannelID        string
	ChannelTitle     string
	ChannelThumbnail string

	UpdatedAt time.Time
}

// Usable reports whether the credential can still produce a valid access
// token at time now, either directly or through a refresh.
func (c *Credential) Usable(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	if now.Before(c.TokenExpires) {
		return true
	}
	return c.RefreshToken != ""
}

// AudioStream describes one candidate audio track reported by the source probe.
type AudioStream struct {
	Language string `json:"language"`
	Title    string `json:"title"`
}

// SourceInfo is the resolved metadata for a submitted source reference.
type SourceInfo struct {
	Title        string
	Duration     float64
	AudioStreams []AudioStream
}

// SegmentScores is the scoring result for one text segment.
type SegmentScores struct {
	Engagement  float64  `json:"engagement_score"`
	Emotion     float64  `json:"emotion_score"`
	Viral       float64  `json:"viral_potential"`
	Quotability float64  `json:"quotability"`
	Emotions    []string `json:"emotions"`
	Keywords    []string `json:"keywords"`
	Reason      string   `json:"reason"`
}

// ClipMetadata is the generated publish metadata for one clip.
type ClipMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
