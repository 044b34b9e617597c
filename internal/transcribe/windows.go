package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

const (
	// WindowSeconds is the fixed analysis window length.
	WindowSeconds = 30

	// minWindowTextChars drops near-empty windows before persisting.
	minWindowTextChars = 10
)

// BuildWindows partitions the total duration into fixed-length windows and
// fills each with the speech recognized inside it. The last window is
// truncated to the remaining duration. When no speech is available a
// placeholder text marks the window for downstream analysis. Windows whose
// text is at or under the minimum length are dropped.
func BuildWindows(jobID string, duration float64, speech []SpokenSegment) []*types.TranscriptSegment {
	var windows []*types.TranscriptSegment

	for start := 0; float64(start) < duration; start += WindowSeconds {
		end := float64(start + WindowSeconds)
		if end > duration {
			end = duration
		}

		text := speechInWindow(speech, float64(start), end)
		if text == "" {
			text = fmt.Sprintf("Audio segment from %ds to %gs", start, end)
		}
		if len(strings.TrimSpace(text)) <= minWindowTextChars {
			continue
		}

		windows = append(windows, &types.TranscriptSegment{
			JobID:     jobID,
			StartTime: float64(start),
			EndTime:   end,
			Text:      strings.TrimSpace(text),
		})
	}
	return windows
}

// speechInWindow joins the recognized segments that overlap the window.
func speechInWindow(speech []SpokenSegment, start, end float64) string {
	var parts []string
	for _, seg := range speech {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Manifest is the transcript file written alongside the job's media.
type Manifest struct {
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
	Segments []ManifestSegment `json:"segments"`
}

// ManifestSegment mirrors a persisted window in the manifest file.
type ManifestSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// WriteManifest saves the transcript manifest to path.
func WriteManifest(path, language string, duration float64, windows []*types.TranscriptSegment) error {
	manifest := Manifest{Language: language, Duration: duration}
	if manifest.Language == "" {
		manifest.Language = "en"
	}
	for _, w := range windows {
		manifest.Segments = append(manifest.Segments, ManifestSegment{
			Start: w.StartTime,
			End:   w.EndTime,
			Text:  w.Text,
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save transcript: %v", err)
	}
	return nil
}
