package stats

import (
	"time"

	"github.com/vincentbai/rrweb-viewer/internal/models"
)

// Category labels used as keys of RecordingStats.EventTypes.
const (
	CategoryFullSnapshot = "Full Snapshot"
	CategoryIncremental  = "Incremental"
	CategoryMeta         = "Meta"
	CategoryCustom       = "Custom"
	CategoryOther        = "Other"
)

// Categories lists every EventTypes key in display order.
var Categories = []string{
	CategoryFullSnapshot,
	CategoryIncremental,
	CategoryMeta,
	CategoryCustom,
	CategoryOther,
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Interactions struct {
	Clicks     int `json:"clicks"`
	Scrolls    int `json:"scrolls"`
	Inputs     int `json:"inputs"`
	MouseMoves int `json:"mouseMoves"`
	TouchMoves int `json:"touchMoves"`
}

// RecordingStats summarises one recording. Nil pointers mean "unknown".
type RecordingStats struct {
	TotalEvents  int            `json:"totalEvents"`
	FileSize     int64          `json:"fileSize"`
	URL          *string        `json:"url"`
	Duration     int64          `json:"duration"` // milliseconds
	Viewport     *Viewport      `json:"viewport"`
	StartTime    *time.Time     `json:"startTime"`
	EndTime      *time.Time     `json:"endTime"`
	EventTypes   map[string]int `json:"eventTypes"`
	Interactions Interactions   `json:"interactions"`
}

// Compute folds events into a RecordingStats. It never fails: payload fields
// that were absent or malformed at decode time are simply not counted.
func Compute(events []models.Event, fileSize int64) RecordingStats {
	stats := RecordingStats{
		TotalEvents: len(events),
		FileSize:    fileSize,
		EventTypes:  make(map[string]int, len(Categories)),
	}
	for _, category := range Categories {
		stats.EventTypes[category] = 0
	}
	if len(events) == 0 {
		return stats
	}

	var minTimestamp, maxTimestamp int64
	seenTimestamp := false

	for _, event := range events {
		if event.HasTimestamp {
			if !seenTimestamp || event.Timestamp < minTimestamp {
				minTimestamp = event.Timestamp
			}
			if !seenTimestamp || event.Timestamp > maxTimestamp {
				maxTimestamp = event.Timestamp
			}
			seenTimestamp = true
		}

		stats.EventTypes[categoryOf(event.Type)]++

		switch data := event.Data.(type) {
		case models.MetaPayload:
			if data.Href != "" && stats.URL == nil {
				href := data.Href
				stats.URL = &href
			}
			if data.Width != 0 && data.Height != 0 && stats.Viewport == nil {
				stats.Viewport = &Viewport{Width: data.Width, Height: data.Height}
			}
		case models.IncrementalPayload:
			countInteraction(&stats.Interactions, data.Source)
		}
	}

	if seenTimestamp {
		start := time.UnixMilli(minTimestamp)
		end := time.UnixMilli(maxTimestamp)
		stats.StartTime = &start
		stats.EndTime = &end
		stats.Duration = maxTimestamp - minTimestamp
	}
	return stats
}

func categoryOf(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeFullSnapshot:
		return CategoryFullSnapshot
	case models.EventTypeIncrementalSnapshot:
		return CategoryIncremental
	case models.EventTypeMeta:
		return CategoryMeta
	case models.EventTypeCustom:
		return CategoryCustom
	default:
		return CategoryOther
	}
}

// Only explicit user actions are tallied; mutations, resizes, media and
// stylesheet sources are not.
func countInteraction(interactions *Interactions, source models.IncrementalSource) {
	switch source {
	case models.SourceMouseInteraction:
		interactions.Clicks++
	case models.SourceScroll:
		interactions.Scrolls++
	case models.SourceInput:
		interactions.Inputs++
	case models.SourceMouseMove:
		interactions.MouseMoves++
	case models.SourceTouchMove:
		interactions.TouchMoves++
	}
}
