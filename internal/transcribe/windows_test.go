package transcribe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildWindows_PartitionsDuration(t *testing.T) {
	windows := BuildWindows("job1", 65, nil)

	if len(windows) != 3 {
		t.Fatalf("expected 3 windows for 65s, got %d", len(windows))
	}
	bounds := [][2]float64{{0, 30}, {30, 60}, {60, 65}}
	for i, w := range windows {
		if w.StartTime != bounds[i][0] || w.EndTime != bounds[i][1] {
			t.Fatalf("window %d: got [%v,%v], want %v", i, w.StartTime, w.EndTime, bounds[i])
		}
		if w.JobID != "job1" {
			t.Fatalf("window %d: wrong job id %q", i, w.JobID)
		}
		if w.Text == "" {
			t.Fatalf("window %d: expected placeholder text", i)
		}
	}
}

func TestBuildWindows_ExactMultiple(t *testing.T) {
	windows := BuildWindows("job1", 60, nil)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows for 60s, got %d", len(windows))
	}
	if windows[1].EndTime != 60 {
		t.Fatalf("expected last window to end at 60, got %v", windows[1].EndTime)
	}
}

func TestBuildWindows_JoinsOverlappingSpeech(t *testing.T) {
	speech := []SpokenSegment{
		{Start: 2, End: 8, Text: "the first recognized sentence"},
		{Start: 28, End: 33, Text: "a sentence crossing the boundary"},
		{Start: 40, End: 45, Text: "speech in the second window"},
	}

	windows := BuildWindows("job1", 60, speech)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	want0 := "the first recognized sentence a sentence crossing the boundary"
	if windows[0].Text != want0 {
		t.Fatalf("window 0 text = %q, want %q", windows[0].Text, want0)
	}
	// The boundary-crossing segment belongs to both windows.
	want1 := "a sentence crossing the boundary speech in the second window"
	if windows[1].Text != want1 {
		t.Fatalf("window 1 text = %q, want %q", windows[1].Text, want1)
	}
}

func TestBuildWindows_DropsNearEmptyWindows(t *testing.T) {
	// A short tail window gets a placeholder like "Audio segment from 30s to
	// 31s", which is long enough, but recognized text under the threshold is
	// dropped.
	speech := []SpokenSegment{
		{Start: 0, End: 30, Text: "hi there"},
		{Start: 30, End: 60, Text: "a recognized sentence long enough to keep"},
	}
	windows := BuildWindows("job1", 60, speech)
	if len(windows) != 1 {
		t.Fatalf("expected the near-empty window dropped, got %d windows", len(windows))
	}
	if windows[0].StartTime != 30 {
		t.Fatalf("expected surviving window to start at 30, got %v", windows[0].StartTime)
	}
}

func TestBuildWindows_ZeroDuration(t *testing.T) {
	if windows := BuildWindows("job1", 0, nil); len(windows) != 0 {
		t.Fatalf("expected no windows for zero duration, got %d", len(windows))
	}
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	windows := BuildWindows("job1", 45, []SpokenSegment{
		{Start: 0, End: 10, Text: "recognized text in the first window"},
	})

	if err := WriteManifest(path, "hi", 45, windows); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if manifest.Language != "hi" || manifest.Duration != 45 {
		t.Fatalf("unexpected manifest header: %+v", manifest)
	}
	if len(manifest.Segments) != len(windows) {
		t.Fatalf("expected %d segments, got %d", len(windows), len(manifest.Segments))
	}
}

func TestWriteManifest_DefaultLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := WriteManifest(path, "", 30, nil); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if manifest.Language != "en" {
		t.Fatalf("expected default language en, got %q", manifest.Language)
	}
}
