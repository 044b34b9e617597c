package analysis

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Keyword vocabularies for the local scoring heuristic. Matching is
// case-insensitive substring containment over the whole segment text.
var (
	engagementKeywords = []string{"amazing", "incredible", "wow", "shocking", "unbelievable", "funny", "hilarious",
		"awesome", "fantastic", "mind-blowing", "crazy", "insane", "epic", "legendary"}
	emotionKeywords = []string{"love", "hate", "excited", "surprised", "happy", "angry", "scared", "thrilled",
		"disappointed", "frustrated", "overwhelmed", "passionate", "emotional", "heartwarming"}
	viralKeywords = []string{"viral", "trending", "share", "like", "subscribe", "follow", "must-see", "breaking",
		"exclusive", "revealed", "secret", "exposed", "truth", "shocking"}
	quotableKeywords = []string{"said", "quote", "tells", "explains", "reveals", "admits", "confesses", "announces"}
)

var stopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "a": true, "an": true,
}

var metadataStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "a": true, "an": true,
	"this": true, "that": true,
}

// HeuristicScores is the deterministic local scoring used whenever the
// network backend is unavailable or exhausted. It is a supported first-class
// mode, not an error path.
func HeuristicScores(text string) *types.SegmentScores {
	textLower := strings.ToLower(text)
	words := strings.Fields(text)

	engagement := capScore(float64(countMatches(textLower, engagementKeywords)) * 0.15)
	emotion := capScore(float64(countMatches(textLower, emotionKeywords)) * 0.15)
	viral := capScore(float64(countMatches(textLower, viralKeywords)) * 0.2)
	quotability := capScore(float64(countMatches(textLower, quotableKeywords)) * 0.2)

	// Length bonus: the 20-50 word range is the sweet spot for a short clip.
	var lengthBonus float64
	switch n := len(words); {
	case n >= 20 && n <= 50:
		lengthBonus = 0.2
	case n >= 10 && n <= 80:
		lengthBonus = 0.1
	}

	engagement = capScore(engagement + lengthBonus)
	emotion = capScore(emotion + lengthBonus)
	viral = capScore(viral + lengthBonus)
	quotability = capScore(quotability + lengthBonus)

	// Floors keep any segment minimally viable for selection.
	engagement = floorScore(engagement, 0.4)
	emotion = floorScore(emotion, 0.3)
	viral = floorScore(viral, 0.3)
	quotability = floorScore(quotability, 0.2)

	var emotions []string
	if containsAny(textLower, "funny", "hilarious", "joke", "laugh") {
		emotions = append(emotions, "humor")
	}
	if containsAny(textLower, "shocking", "surprised", "unexpected") {
		emotions = append(emotions, "surprise")
	}
	if containsAny(textLower, "love", "heartwarming", "beautiful") {
		emotions = append(emotions, "inspiration")
	}
	if containsAny(textLower, "angry", "frustrated", "hate") {
		emotions = append(emotions, "controversy")
	}
	if len(emotions) == 0 {
		emotions = []string{"general"}
	}
	if len(emotions) > 5 {
		emotions = emotions[:5]
	}

	return &types.SegmentScores{
		Engagement:  engagement,
		Emotion:     emotion,
		Viral:       viral,
		Quotability: quotability,
		Emotions:    emotions,
		Keywords:    meaningfulWords(words, stopWords, 8),
		Reason:      fmt.Sprintf("Fallback analysis: %d words, detected %s content", len(words), strings.Join(emotions, ", ")),
	}
}

// HeuristicMetadata composes publish metadata without the network backend.
func HeuristicMetadata(segmentText, originalTitle string) *types.ClipMetadata {
	textLower := strings.ToLower(segmentText)
	words := strings.Fields(segmentText)
	keyWords := meaningfulWords(words, metadataStopWords, 5)

	// Title prefix picked by content type, first match wins.
	var titlePrefix string
	switch {
	case containsAny(textLower, "funny", "hilarious", "joke"):
		titlePrefix = "Hilarious"
	case containsAny(textLower, "shocking", "unbelievable", "incredible"):
		titlePrefix = "Shocking"
	case containsAny(textLower, "amazing", "awesome", "fantastic"):
		titlePrefix = "Amazing"
	case containsAny(textLower, "secret", "revealed", "truth"):
		titlePrefix = "Revealed"
	default:
		titlePrefix = "Must See"
	}

	var title string
	if len(keyWords) > 0 {
		n := len(keyWords)
		if n > 2 {
			n = 2
		}
		title = truncate(fmt.Sprintf("%s: %s", titlePrefix, strings.Join(keyWords[:n], " ")), 60)
	} else {
		source := "Video"
		if fields := strings.Fields(originalTitle); len(fields) > 0 {
			source = fields[0]
		}
		title = truncate(fmt.Sprintf("%s Moment from %s", titlePrefix, source), 60)
	}

	var description strings.Builder
	fmt.Fprintf(&description, "%s moment from: %s\n\n", titlePrefix, originalTitle)
	if len(segmentText) > 100 {
		fmt.Fprintf(&description, "%q\n\n", segmentText[:100]+"...")
	} else {
		fmt.Fprintf(&description, "%q\n\n", segmentText)
	}

	hashtags := []string{"#Shorts", "#Viral", "#MustWatch"}
	if containsAny(textLower, "funny", "hilarious") {
		hashtags = append(hashtags, "#Funny", "#Comedy")
	}
	if containsAny(textLower, "shocking", "unbelievable") {
		hashtags = append(hashtags, "#Shocking", "#Unbelievable")
	}
	if containsAny(textLower, "amazing", "incredible") {
		hashtags = append(hashtags, "#Amazing", "#Incredible")
	}
	hashtags = append(hashtags, "#Trending", "#Entertainment")
	description.WriteString(strings.Join(hashtags, " "))

	tags := []string{"shorts", "viral", "trending", "entertainment", "mustsee"}
	if containsAny(textLower, "funny", "comedy", "hilarious") {
		tags = append(tags, "funny", "comedy", "humor")
	}
	if containsAny(textLower, "music", "song", "dance") {
		tags = append(tags, "music", "song", "dance")
	}
	if containsAny(textLower, "food", "cooking", "recipe") {
		tags = append(tags, "food", "cooking", "recipe")
	}
	if containsAny(textLower, "travel", "adventure") {
		tags = append(tags, "travel", "adventure")
	}
	n := len(keyWords)
	if n > 3 {
		n = 3
	}
	tags = append(tags, keyWords[:n]...)

	return &types.ClipMetadata{
		Title:       title,
		Description: truncate(description.String(), 500),
		Tags:        dedupeTags(tags, 15),
	}
}

func countMatches(textLower string, vocabulary []string) int {
	count := 0
	for _, keyword := range vocabulary {
		if strings.Contains(textLower, keyword) {
			count++
		}
	}
	return count
}

func containsAny(textLower string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(textLower, keyword) {
			return true
		}
	}
	return false
}

// meaningfulWords keeps words longer than 3 characters that are not stop
// words, in original order, up to max.
func meaningfulWords(words []string, stop map[string]bool, max int) []string {
	var out []string
	for _, word := range words {
		if len(word) > 3 && !stop[strings.ToLower(word)] {
			out = append(out, word)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

func dedupeTags(tags []string, max int) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == max {
			break
		}
	}
	return out
}

func capScore(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func floorScore(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
