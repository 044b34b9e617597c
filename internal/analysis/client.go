package analysis

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// Backend is the external scoring capability. Implementations fail with
// errors the client classifies as quota-related or not.
type Backend interface {
	Score(ctx context.Context, apiKey, text string) (*types.SegmentScores, error)
	Metadata(ctx context.Context, apiKey, segmentText, originalTitle string) (*types.ClipMetadata, error)
}

// Quota / rate-limit markers, matched case-insensitively against the error
// text. A quota error triggers key failover; anything else does not.
var quotaMarkers = []string{"429", "resource_exhausted", "quota", "rate limit"}

// IsQuotaError reports whether err indicates quota or rate-limit exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Client scores segments and generates clip metadata, failing over across an
// ordered list of API keys. Once every key is exhausted it degrades to the
// local heuristic for the rest of its lifetime. Construct one per process and
// inject it wherever scoring is needed.
type Client struct {
	backend Backend

	mu         sync.Mutex
	keys       []string
	currentKey int
	degraded   bool
}

// NewClient creates a scoring client. With no keys configured the client
// starts degraded and never touches the network.
func NewClient(backend Backend, apiKeys []string) *Client {
	c := &Client{backend: backend, keys: apiKeys}
	if len(apiKeys) == 0 || backend == nil {
		log.Println("No scoring API keys configured, using local analysis only")
		c.degraded = true
	} else {
		log.Printf("Scoring client initialized with %d API key(s)", len(apiKeys))
	}
	return c
}

// Degraded reports whether all keys have been exhausted.
func (c *Client) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// CurrentKeyIndex returns the index of the key currently in use.
func (c *Client) CurrentKeyIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentKey
}

// activeKey returns the key to use, or false when the client is degraded.
func (c *Client) activeKey() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded || c.currentKey >= len(c.keys) {
		return "", false
	}
	return c.keys[c.currentKey], true
}

// advanceKey switches to the next key. When none remain the client enters
// degraded mode permanently.
func (c *Client) advanceKey() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentKey++
	if c.currentKey < len(c.keys) {
		log.Printf("Switching to backup API key #%d", c.currentKey+1)
		return c.keys[c.currentKey], true
	}
	log.Println("All scoring API keys exhausted, switching to local analysis")
	c.degraded = true
	return "", false
}

// Analyze scores a text segment. It never fails: any unrecoverable backend
// problem resolves to the deterministic local heuristic.
func (c *Client) Analyze(ctx context.Context, text string) *types.SegmentScores {
	key, ok := c.activeKey()
	if !ok {
		return HeuristicScores(text)
	}

	scores, err := c.backend.Score(ctx, key, text)
	if err == nil {
		return clampScores(scores)
	}

	if IsQuotaError(err) {
		log.Printf("Scoring quota/rate limit hit: %v", err)
		if nextKey, ok := c.advanceKey(); ok {
			// One retry with the next key, never more.
			scores, err = c.backend.Score(ctx, nextKey, text)
			if err == nil {
				return clampScores(scores)
			}
			if IsQuotaError(err) {
				c.advanceKey()
			}
			log.Printf("Retry with backup key failed: %v", err)
		}
	} else {
		log.Printf("Scoring error: %v", err)
	}

	return HeuristicScores(text)
}

// GenerateMetadata produces title/description/tags for a clip. Same failover
// behavior as Analyze.
func (c *Client) GenerateMetadata(ctx context.Context, segmentText, originalTitle string) *types.ClipMetadata {
	key, ok := c.activeKey()
	if !ok {
		return HeuristicMetadata(segmentText, originalTitle)
	}

	meta, err := c.backend.Metadata(ctx, key, segmentText, originalTitle)
	if err == nil {
		return clampMetadata(meta)
	}

	if IsQuotaError(err) {
		log.Printf("Scoring quota/rate limit hit: %v", err)
		if nextKey, ok := c.advanceKey(); ok {
			meta, err = c.backend.Metadata(ctx, nextKey, segmentText, originalTitle)
			if err == nil {
				return clampMetadata(meta)
			}
			if IsQuotaError(err) {
				c.advanceKey()
			}
			log.Printf("Retry with backup key failed: %v", err)
		}
	} else {
		log.Printf("Metadata generation error: %v", err)
	}

	return HeuristicMetadata(segmentText, originalTitle)
}

// clampScores enforces the result contract on network responses.
func clampScores(s *types.SegmentScores) *types.SegmentScores {
	s.Engagement = clampScore(s.Engagement)
	s.Emotion = clampScore(s.Emotion)
	s.Viral = clampScore(s.Viral)
	s.Quotability = clampScore(s.Quotability)
	if len(s.Emotions) > 5 {
		s.Emotions = s.Emotions[:5]
	}
	if len(s.Keywords) > 10 {
		s.Keywords = s.Keywords[:10]
	}
	if s.Reason == "" {
		s.Reason = "Content has potential for engagement"
	}
	s.Reason = truncate(s.Reason, 500)
	return s
}

// clampMetadata enforces the result contract on network responses.
func clampMetadata(m *types.ClipMetadata) *types.ClipMetadata {
	m.Title = truncate(m.Title, 100)
	m.Description = truncate(m.Description, 500)
	m.Tags = dedupeTags(m.Tags, 15)
	return m
}
