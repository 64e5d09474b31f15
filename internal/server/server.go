package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vincentbai/rrweb-viewer/internal/config"
	"github.com/vincentbai/rrweb-viewer/internal/database"
	"github.com/vincentbai/rrweb-viewer/internal/metrics"
	"github.com/vincentbai/rrweb-viewer/internal/models"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
	"github.com/vincentbai/rrweb-viewer/internal/viewer"
)

type Server struct {
	db      *database.Database
	viewer  *viewer.Viewer
	metrics *metrics.Collector
	cache   *lru.Cache[string, stats.RecordingStats]
	address string
	server  *http.Server

	maxUploadBytes int64
	historyLimit   int
}

type Option func(*Server)

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUploadBytes = n }
}

func WithHistoryLimit(n int) Option {
	return func(s *Server) { s.historyLimit = n }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

func WithCacheSize(n int) Option {
	return func(s *Server) {
		if cache, err := lru.New[string, stats.RecordingStats](n); err == nil {
			s.cache = cache
		}
	}
}

func NewServer(db *database.Database, address string, opts ...Option) *Server {
	s := &Server{
		db:             db,
		viewer:         viewer.New(),
		address:        address,
		maxUploadBytes: config.DefaultMaxUploadBytes,
		historyLimit:   config.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}
	if s.cache == nil {
		s.cache, _ = lru.New[string, stats.RecordingStats](config.DefaultCacheSize)
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

// handleUpload loads a multipart "file" into the viewer and goes back to the
// page, which shows either the stats or the error.
func (s *Server) handleUpload(w http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(w, request.Body, s.maxUploadBytes)
	defer http.Redirect(w, request, "/", http.StatusSeeOther)

	file, header, err := request.FormFile("file")
	if err != nil {
		s.failUpload(err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.failUpload(err)
		return
	}

	start := time.Now()
	session, err := s.viewer.Load(header.Filename, data)
	if err != nil {
		s.metrics.RecordUpload(metrics.ResultInvalid)
		log.Printf("Rejected upload %s: %v", header.Filename, err)
		return
	}
	s.metrics.RecordAnalysis(session.Stats.TotalEvents, time.Since(start))

	if s.db != nil {
		if _, err := s.db.InsertAnalysis(session.FileName, session.Stats); err != nil {
			s.metrics.RecordUpload(metrics.ResultStoreFailed)
			log.Printf("Database error: %v", err)
			return
		}
	}
	s.metrics.RecordUpload(metrics.ResultOK)
	log.Printf("Loaded %s: %d events, %s", session.FileName, session.Stats.TotalEvents, stats.FormatBytes(session.FileSize))
}

func (s *Server) failUpload(err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.metrics.RecordUpload(metrics.ResultTooLarge)
		s.viewer.Fail(errors.New("file is larger than " + stats.FormatBytes(tooLarge.Limit)))
		return
	}
	s.metrics.RecordUpload(metrics.ResultReadError)
	log.Printf("Failed to read upload: %v", err)
	s.viewer.Fail(errors.New("failed to read file"))
}

func (s *Server) handleClear(w http.ResponseWriter, request *http.Request) {
	s.viewer.Clear()
	http.Redirect(w, request, "/", http.StatusSeeOther)
}

type recordingResponse struct {
	ID       string               `json:"id"`
	FileName string               `json:"fileName"`
	FileSize int64                `json:"fileSize"`
	LoadedAt time.Time            `json:"loadedAt"`
	Stats    stats.RecordingStats `json:"stats"`
}

func (s *Server) handleRecording(w http.ResponseWriter, _ *http.Request) {
	session, lastErr := s.viewer.Current()
	if session == nil {
		if lastErr != nil {
			writeError(w, http.StatusUnprocessableEntity, lastErr)
			return
		}
		writeError(w, http.StatusNotFound, errors.New("no recording loaded"))
		return
	}
	writeJSON(w, http.StatusOK, recordingResponse{
		ID:       session.ID,
		FileName: session.FileName,
		FileSize: session.FileSize,
		LoadedAt: session.LoadedAt,
		Stats:    session.Stats,
	})
}

func (s *Server) handleRecordingEvents(w http.ResponseWriter, _ *http.Request) {
	session, _ := s.viewer.Current()
	if session == nil {
		writeError(w, http.StatusNotFound, errors.New("no recording loaded"))
		return
	}
	data, err := session.EventsJSON()
	if err != nil {
		// replaced between Current and EventsJSON
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleStats summarises the request body without touching the viewer.
func (s *Server) handleStats(w http.ResponseWriter, request *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, request.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.RecordUpload(metrics.ResultTooLarge)
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("recording too large"))
			return
		}
		s.metrics.RecordUpload(metrics.ResultReadError)
		writeError(w, http.StatusBadRequest, errors.New("failed to read body"))
		return
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordCacheHit()
		writeJSON(w, http.StatusOK, cached)
		return
	}

	start := time.Now()
	recording, err := models.ParseRecording(data)
	if err != nil {
		s.metrics.RecordUpload(metrics.ResultInvalid)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result := stats.Compute(recording.Events, int64(len(data)))
	s.metrics.RecordAnalysis(result.TotalEvents, time.Since(start))
	s.metrics.RecordUpload(metrics.ResultOK)

	s.cache.Add(key, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, request *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, []database.Analysis{})
		return
	}
	limit := s.historyLimit
	if raw := request.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}
	analyses, err := s.db.ListAnalyses(limit)
	if err != nil {
		log.Printf("Database error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to list history"))
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, request *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusNotFound, database.ErrNotFound)
		return
	}
	analysis, err := s.db.GetAnalysis(chi.URLParam(request, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to load analysis"))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Post("/clear", s.handleClear)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/recording", s.handleRecording)
		r.Get("/recording/events", s.handleRecordingEvents)
		r.Post("/stats", s.handleStats)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryItem)
	})
	return r
}

func (s *Server) Start() error {
	router := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("rrweb viewer listening on http://%s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-shutdownChannel
	log.Println("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.viewer.Clear()
	if err := s.server.Shutdown(shutdownContext); err != nil {
		return err
	}

	log.Println("Server exited")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
