package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
)

// Scheduler periodically reclaims disk space: old files in the temp
// directory, and files in the uploads/outputs directories that no job or
// clip record references anymore.
type Scheduler struct {
	repo            *storage.Repository
	artifacts       *storage.Artifacts
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler.
func NewScheduler(repo *storage.Repository, artifacts *storage.Artifacts,
	intervalMinutes, maxAgeHours int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	return &Scheduler{
		repo:            repo,
		artifacts:       artifacts,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup loop with an initial pass on startup.
func (s *Scheduler) Start() {
	log.Println("Running initial disk cleanup...")
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

func (s *Scheduler) sweep() {
	s.cleanOldTempFiles()
	s.cleanOrphanedFiles()
}

// cleanOldTempFiles removes working files past the age limit.
func (s *Scheduler) cleanOldTempFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.artifacts.TempDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old file %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during temp cleanup: %v", err)
	}

	if deletedCount > 0 {
		log.Printf("Temp cleanup: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// cleanOrphanedFiles removes media files no database record points at. Only
// files past the age limit are considered, so in-flight downloads whose
// paths are not yet persisted survive the sweep.
func (s *Scheduler) cleanOrphanedFiles() {
	known, err := s.repo.KnownFilePaths()
	if err != nil {
		log.Printf("Orphan sweep skipped: %v", err)
		return
	}

	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour
	var deletedCount int

	for _, dir := range []string{s.artifacts.UploadsDir(), s.artifacts.OutputsDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if known[path] {
				continue
			}
			info, err := entry.Info()
			if err != nil || now.Sub(info.ModTime()) <= maxAge {
				continue
			}
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete orphaned file %s: %v", path, err)
			} else {
				deletedCount++
				log.Printf("Deleted orphaned file: %s", path)
			}
		}
	}

	if deletedCount > 0 {
		log.Printf("Orphan sweep: %d files deleted", deletedCount)
	}
}
