package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// EventType is the rrweb event type code.
type EventType int

const (
	EventTypeDomContentLoaded EventType = iota
	EventTypeLoad
	EventTypeFullSnapshot
	EventTypeIncrementalSnapshot
	EventTypeMeta
	EventTypeCustom
	EventTypePlugin

	// EventTypeUnknown marks an event whose type is missing or not an integer.
	EventTypeUnknown EventType = -1
)

// IncrementalSource is the data.source code of an incremental snapshot.
type IncrementalSource int

const (
	SourceMutation IncrementalSource = iota
	SourceMouseMove
	SourceMouseInteraction
	SourceScroll
	SourceViewportResize
	SourceInput
	SourceTouchMove
	SourceMediaInteraction
	SourceStyleSheetRule
	SourceCanvasMutation
	SourceFont
	SourceLog
	SourceDrag
	SourceStyleDeclaration
	SourceSelection
	SourceAdoptedStyleSheet
	SourceCustomElement

	SourceUnknown IncrementalSource = -1
)

// Payload is the type-dependent part of an event. Only the variants below
// implement it.
type Payload interface {
	payload()
}

type MetaPayload struct {
	Href   string
	Width  int
	Height int
}

type IncrementalPayload struct {
	Source IncrementalSource
}

type FullSnapshotPayload struct{}

type CustomPayload struct {
	Tag string
}

// OpaquePayload carries nothing; used for DomContentLoaded, Load, Plugin and
// unknown type codes.
type OpaquePayload struct{}

func (MetaPayload) payload()         {}
func (IncrementalPayload) payload()  {}
func (FullSnapshotPayload) payload() {}
func (CustomPayload) payload()       {}
func (OpaquePayload) payload()       {}

// Event is one entry of a recording. Raw holds the original JSON element so
// it can be handed back to the player untouched.
type Event struct {
	Type         EventType
	Timestamp    int64
	HasTimestamp bool
	Data         Payload
	Raw          json.RawMessage
}

type Recording struct {
	Events []Event
}

var (
	ErrInvalidJSON    = errors.New("invalid JSON file")
	ErrEventsNotArray = errors.New("the 'events' field must be an array")
	ErrMissingEvents  = errors.New("JSON must have an 'events' array property")
)

// ParseRecording decodes a {"events": [...]} document. Individual events never
// fail: fields that are missing or of the wrong type are left unset.
func ParseRecording(data []byte) (*Recording, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil || object == nil {
		return nil, ErrMissingEvents
	}
	rawEvents, ok := object["events"]
	if !ok {
		return nil, ErrMissingEvents
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(rawEvents, &elements); err != nil || elements == nil {
		return nil, ErrEventsNotArray
	}

	recording := &Recording{Events: make([]Event, 0, len(elements))}
	for _, element := range elements {
		recording.Events = append(recording.Events, DecodeEvent(element))
	}
	return recording, nil
}

// DecodeEvent turns one raw array element into an Event.
func DecodeEvent(raw json.RawMessage) Event {
	event := Event{
		Type: EventTypeUnknown,
		Data: OpaquePayload{},
		Raw:  append(json.RawMessage(nil), bytes.TrimSpace(raw)...),
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return event
	}

	if code, ok := intField(fields, "type"); ok {
		event.Type = EventType(code)
	}
	if ts, ok := intField(fields, "timestamp"); ok {
		event.Timestamp = ts
		event.HasTimestamp = true
	}

	var data map[string]json.RawMessage
	if rawData, ok := fields["data"]; ok {
		if err := json.Unmarshal(rawData, &data); err != nil {
			data = nil
		}
	}

	switch event.Type {
	case EventTypeMeta:
		meta := MetaPayload{}
		meta.Href, _ = stringField(data, "href")
		if w, ok := intField(data, "width"); ok {
			meta.Width = int(w)
		}
		if h, ok := intField(data, "height"); ok {
			meta.Height = int(h)
		}
		event.Data = meta
	case EventTypeIncrementalSnapshot:
		incremental := IncrementalPayload{Source: SourceUnknown}
		if source, ok := intField(data, "source"); ok {
			incremental.Source = IncrementalSource(source)
		}
		event.Data = incremental
	case EventTypeFullSnapshot:
		event.Data = FullSnapshotPayload{}
	case EventTypeCustom:
		custom := CustomPayload{}
		custom.Tag, _ = stringField(data, "tag")
		event.Data = custom
	}
	return event
}

// MarshalJSON re-emits the event exactly as it was received.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

// intField reads an integral JSON number. Strings, booleans and fractional
// numbers count as absent.
func intField(fields map[string]json.RawMessage, key string) (int64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return 0, false
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	if n, err := number.Int64(); err == nil {
		return n, true
	}
	f, err := number.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
