package server

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/vincentbai/rrweb-viewer/internal/database"
	"github.com/vincentbai/rrweb-viewer/internal/format"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"formatBytes":    stats.FormatBytes,
	"formatDuration": stats.FormatDuration,
	"formatCount":    stats.FormatCount,
}).ParseFS(templateFS, "templates/index.html"))

type categoryCount struct {
	Label string
	Count int
}

type pageData struct {
	FileName   string
	FileSize   int64
	Error      string
	Loaded     bool
	Panel      []format.Row
	Categories []categoryCount
	History    []database.Analysis
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := pageData{}

	session, lastErr := s.viewer.Current()
	if lastErr != nil {
		data.Error = lastErr.Error()
	}
	if session != nil {
		data.Loaded = true
		data.FileName = session.FileName
		data.FileSize = session.FileSize
		data.Panel = format.PanelRows(session.Stats)
		for _, category := range stats.Categories {
			data.Categories = append(data.Categories, categoryCount{Label: category, Count: session.Stats.EventTypes[category]})
		}
	}
	if s.db != nil {
		history, err := s.db.ListAnalyses(10)
		if err != nil {
			log.Printf("Database error: %v", err)
		}
		data.History = history
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		log.Printf("Failed to render page: %v", err)
	}
}
