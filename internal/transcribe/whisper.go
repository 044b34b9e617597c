package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// WhisperTranscriber shells out to Python's OpenAI Whisper for speech
// recognition. It is optional: when the binary is unavailable the pipeline
// falls back to placeholder window text.
type WhisperTranscriber struct {
	modelName string
	python    string
	tempDir   string
	mu        sync.Mutex // whisper is memory-hungry, one run at a time
}

// NewWhisperTranscriber creates a transcriber for the given model name
// (tiny/base/small/medium/large).
func NewWhisperTranscriber(modelName, tempDir string) *WhisperTranscriber {
	if modelName == "" {
		modelName = "small"
	}
	return &WhisperTranscriber{
		modelName: modelName,
		python:    "python",
		tempDir:   tempDir,
	}
}

// whisperOutput matches Python Whisper's JSON output format.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// SpokenSegment is one timestamped piece of recognized speech.
type SpokenSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcribe runs whisper over the audio file and returns the recognized
// speech segments.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]SpokenSegment, string, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	outDir := filepath.Join(wt.tempDir, "whisper_output")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create whisper output dir: %v", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path: %v", err)
	}

	cmd := exec.CommandContext(ctx, wt.python, "-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, "", fmt.Errorf("whisper transcription failed: %v\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read whisper output: %v", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to parse whisper JSON: %v", err)
	}

	segments := make([]SpokenSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, SpokenSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	log.Printf("Transcription completed: %d speech segments", len(segments))
	return segments, parsed.Language, nil
}
