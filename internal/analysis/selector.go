package analysis

import (
	"sort"
	"strings"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Selection policy bounds.
const (
	maxSelected = 5

	minClipSeconds = 10.0
	maxClipSeconds = 60.0

	minWordCount         = 5
	minScore             = 0.4
	fallbackMinWordCount = 3
	fallbackScore        = 0.3

	durationOnlyMin   = 15.0
	durationOnlyScore = 0.5
	durationOnlyMax   = 3
)

// SelectSegments ranks scored segments and returns at most five, highest
// overall score first. Callers pass segments in start-time order; the sort is
// stable, so equal scores keep that order. When nothing qualifies, the first
// segment with a plausible window and at least three words is accepted at a
// fixed fallback score, guaranteeing one output whenever any segment has
// nontrivial content.
func SelectSegments(segments []*types.TranscriptSegment) []*types.TranscriptSegment {
	var selected []*types.TranscriptSegment
	for _, seg := range segments {
		duration := seg.Duration()
		if seg.OverallScore > minScore &&
			duration >= minClipSeconds && duration <= maxClipSeconds &&
			wordCount(seg.Text) >= minWordCount {
			selected = append(selected, seg)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].OverallScore > selected[j].OverallScore
	})

	if len(selected) > maxSelected {
		selected = selected[:maxSelected]
	}

	if len(selected) == 0 {
		for _, seg := range segments {
			duration := seg.Duration()
			if duration >= minClipSeconds && duration <= maxClipSeconds &&
				wordCount(seg.Text) >= fallbackMinWordCount {
				seg.OverallScore = fallbackScore
				return []*types.TranscriptSegment{seg}
			}
		}
	}

	return selected
}

// SelectByDuration is the last-resort selection used when the analysis stage
// itself failed: up to three segments chosen purely by window length, each at
// a fixed default score.
func SelectByDuration(segments []*types.TranscriptSegment) []*types.TranscriptSegment {
	var selected []*types.TranscriptSegment
	for _, seg := range segments {
		duration := seg.Duration()
		if duration >= durationOnlyMin && duration <= maxClipSeconds {
			seg.OverallScore = durationOnlyScore
			selected = append(selected, seg)
			if len(selected) == durationOnlyMax {
				break
			}
		}
	}
	return selected
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
