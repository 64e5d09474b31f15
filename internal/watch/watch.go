// Package watch recomputes recording stats whenever a file on disk changes.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vincentbai/rrweb-viewer/internal/models"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
)

const debounce = 100 * time.Millisecond

// Handler receives the fully recomputed stats, or the error that prevented it.
type Handler func(stats.RecordingStats, error)

// Analyze reads and summarises the recording at path.
func Analyze(path string) (stats.RecordingStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stats.RecordingStats{}, fmt.Errorf("failed to read file: %w", err)
	}
	recording, err := models.ParseRecording(data)
	if err != nil {
		return stats.RecordingStats{}, err
	}
	return stats.Compute(recording.Events, int64(len(data))), nil
}

// Watch calls fn once immediately and again after every write to path, until
// ctx is done. The parent directory is watched so editors that replace the
// file by rename are picked up too.
func Watch(ctx context.Context, path string, fn Handler) error {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absolute), err)
	}

	fn(Analyze(absolute))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absolute {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		case <-timer.C:
			fn(Analyze(absolute))
		}
	}
}
