package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-pro"
)

const scoreSystemPrompt = `You are an expert content analyst specializing in viral social media content and YouTube Shorts.

Analyze the given text segment for its potential to create engaging short-form video content.

Respond with a JSON object with these fields:
- engagement_score (0.0-1.0): how likely this content is to engage viewers
- emotion_score (0.0-1.0): emotional impact and intensity
- viral_potential (0.0-1.0): likelihood to be shared and go viral
- quotability (0.0-1.0): how memorable and quotable the content is
- emotions: list of emotions detected (humor, surprise, excitement, inspiration, etc.)
- keywords: important keywords that make this content engaging
- reason: brief explanation of why this segment is engaging`

const metadataSystemPrompt = `You are an expert YouTube content creator specializing in viral Shorts.

Generate engaging metadata for a YouTube Short based on the content segment and original video title.

Respond with a JSON object with these fields:
- title: a catchy, clickable title (50-60 characters) that hooks viewers
- description: an engaging description with relevant hashtags
- tags: 10-15 relevant tags for discoverability`

// GeminiBackend calls the Gemini generateContent REST API. The API key is
// supplied per call so the failover client can rotate keys.
type GeminiBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewGeminiBackend creates the backend. Empty arguments pick the defaults.
func NewGeminiBackend(baseURL, model string) *GeminiBackend {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiBackend{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Score asks the model to analyze one text segment.
func (g *GeminiBackend) Score(ctx context.Context, apiKey, text string) (*types.SegmentScores, error) {
	prompt := fmt.Sprintf("Analyze this content segment for YouTube Shorts potential:\n\n%s", text)

	raw, err := g.generate(ctx, apiKey, scoreSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var scores types.SegmentScores
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %v", err)
	}
	return &scores, nil
}

// Metadata asks the model to generate publish metadata for one clip.
func (g *GeminiBackend) Metadata(ctx context.Context, apiKey, segmentText, originalTitle string) (*types.ClipMetadata, error) {
	prompt := fmt.Sprintf("Original video title: %s\n\nContent segment: %s\n\nGenerate optimized YouTube Shorts metadata for this content.",
		originalTitle, segmentText)

	raw, err := g.generate(ctx, apiKey, metadataSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var meta types.ClipMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata response: %v", err)
	}
	return &meta, nil
}

func (g *GeminiBackend) generate(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error) {
	reqBody := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
	}
	reqBody.GenerationConfig.ResponseMimeType = "application/json"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scoring request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The status code stays in the error text so the failover client can
		// classify 429/quota responses.
		return "", fmt.Errorf("scoring API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from scoring API")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
