// Package viewer holds the single recording currently loaded in the UI.
//
// A Session is owned by the Viewer: loading a new file or clearing the view
// releases the previous one, so at most one session is ever live.
package viewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/rrweb-viewer/internal/models"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
)

// ErrReleased is returned when a released session's feeds are requested.
var ErrReleased = errors.New("session released")

type Session struct {
	ID       string
	FileName string
	FileSize int64
	LoadedAt time.Time
	Stats    stats.RecordingStats

	mu        sync.RWMutex
	recording *models.Recording
	released  bool
}

// EventsJSON encodes the events for the replay player and tree inspector.
func (s *Session) EventsJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrReleased
	}
	return json.Marshal(struct {
		Events []models.Event `json:"events"`
	}{Events: s.recording.Events})
}

func (s *Session) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.recording = nil
}

// Viewer tracks the current session and the last load error.
type Viewer struct {
	mu      sync.Mutex
	current *Session
	lastErr error
}

func New() *Viewer {
	return &Viewer{}
}

// Load decodes data and makes it the current session. On a decode error the
// previous session is still released and the error becomes the current
// state.
func (v *Viewer) Load(fileName string, data []byte) (*Session, error) {
	recording, parseErr := models.ParseRecording(data)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current != nil {
		v.current.release()
		v.current = nil
	}
	if parseErr != nil {
		v.lastErr = fmt.Errorf("%s: %w", fileName, parseErr)
		return nil, parseErr
	}

	fileSize := int64(len(data))
	session := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		FileSize:  fileSize,
		LoadedAt:  time.Now(),
		Stats:     stats.Compute(recording.Events, fileSize),
		recording: recording,
	}
	v.current = session
	v.lastErr = nil
	return session, nil
}

// Fail records a read error without touching the decoder.
func (v *Viewer) Fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != nil {
		v.current.release()
		v.current = nil
	}
	v.lastErr = err
}

func (v *Viewer) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != nil {
		v.current.release()
		v.current = nil
	}
	v.lastErr = nil
}

// Current returns the live session (nil when nothing is loaded) and the last
// load error.
func (v *Viewer) Current() (*Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.lastErr
}
