package media

import (
	"log"
	"strings"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Audio track language indicators, matched case-insensitively as substrings
// against both the language code and the human-readable stream title.
var (
	hindiIndicators   = []string{"hi", "hin", "hindi", "हिंदी", "हिन्दी"}
	englishIndicators = []string{"en", "eng", "english"}
)

// SelectAudioStream picks the index of the audio track to extract.
//
// Priority: Hindi beats English beats the container default. A Hindi match
// ends the scan immediately; an English match is remembered but the scan
// continues, since a later stream could still be Hindi. With no match, or no
// reported streams at all, index 0 is used.
func SelectAudioStream(streams []types.AudioStream) int {
	if len(streams) == 0 {
		log.Println("No audio streams reported, using default stream 0")
		return 0
	}

	englishStream := -1

	for idx, stream := range streams {
		language := strings.ToLower(stream.Language)
		title := strings.ToLower(stream.Title)

		if matchesAny(language, hindiIndicators) || matchesAny(title, hindiIndicators) {
			log.Printf("Found Hindi audio stream at index %d", idx)
			return idx
		}

		if englishStream < 0 &&
			(matchesAny(language, englishIndicators) || matchesAny(title, englishIndicators)) {
			log.Printf("Found English audio stream at index %d", idx)
			englishStream = idx
		}
	}

	if englishStream >= 0 {
		return englishStream
	}
	return 0
}

func matchesAny(value string, indicators []string) bool {
	if value == "" {
		return false
	}
	for _, indicator := range indicators {
		if strings.Contains(value, indicator) {
			return true
		}
	}
	return false
}
