package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRecording(t *testing.T) {
	data := []byte(`{"events": [
		{"type": 4, "timestamp": 1000, "data": {"href": "http://x", "width": 800, "height": 600}},
		{"type": 3, "timestamp": 2000, "data": {"source": 2}},
		{"type": 2, "timestamp": 1500, "data": {}}
	]}`)

	recording, err := ParseRecording(data)
	if err != nil {
		t.Fatalf("ParseRecording() error = %v", err)
	}
	if len(recording.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(recording.Events))
	}

	meta, ok := recording.Events[0].Data.(MetaPayload)
	if !ok {
		t.Fatalf("Expected MetaPayload, got %T", recording.Events[0].Data)
	}
	if meta.Href != "http://x" || meta.Width != 800 || meta.Height != 600 {
		t.Errorf("Unexpected meta payload: %+v", meta)
	}

	incremental, ok := recording.Events[1].Data.(IncrementalPayload)
	if !ok {
		t.Fatalf("Expected IncrementalPayload, got %T", recording.Events[1].Data)
	}
	if incremental.Source != SourceMouseInteraction {
		t.Errorf("Expected source %d, got %d", SourceMouseInteraction, incremental.Source)
	}

	if _, ok := recording.Events[2].Data.(FullSnapshotPayload); !ok {
		t.Errorf("Expected FullSnapshotPayload, got %T", recording.Events[2].Data)
	}
	if recording.Events[2].Timestamp != 1500 || !recording.Events[2].HasTimestamp {
		t.Errorf("Unexpected timestamp: %d (present=%v)", recording.Events[2].Timestamp, recording.Events[2].HasTimestamp)
	}
}

func TestParseRecordingErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"invalid json", `{"events": [invalid json]}`, ErrInvalidJSON},
		{"empty input", ``, ErrInvalidJSON},
		{"events is object", `{"events": {"type": 2}}`, ErrEventsNotArray},
		{"events is null", `{"events": null}`, ErrEventsNotArray},
		{"events is string", `{"events": "[]"}`, ErrEventsNotArray},
		{"no events key", `{"recording": []}`, ErrMissingEvents},
		{"top level array", `[{"type": 2}]`, ErrMissingEvents},
		{"top level number", `42`, ErrMissingEvents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecording([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRecording() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRecordingEmptyEvents(t *testing.T) {
	recording, err := ParseRecording([]byte(`{"events": []}`))
	if err != nil {
		t.Fatalf("ParseRecording() error = %v", err)
	}
	if len(recording.Events) != 0 {
		t.Errorf("Expected 0 events, got %d", len(recording.Events))
	}
}

func TestDecodeEventMalformedFields(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantType      EventType
		wantTimestamp bool
		wantData      Payload
	}{
		{
			name:     "not an object",
			input:    `17`,
			wantType: EventTypeUnknown,
			wantData: OpaquePayload{},
		},
		{
			name:          "string type",
			input:         `{"type": "4", "timestamp": 10}`,
			wantType:      EventTypeUnknown,
			wantTimestamp: true,
			wantData:      OpaquePayload{},
		},
		{
			name:     "meta with wrong field types",
			input:    `{"type": 4, "timestamp": "later", "data": {"href": 5, "width": "800", "height": 600}}`,
			wantType: EventTypeMeta,
			wantData: MetaPayload{Height: 600},
		},
		{
			name:          "meta with null data",
			input:         `{"type": 4, "timestamp": 1, "data": null}`,
			wantType:      EventTypeMeta,
			wantTimestamp: true,
			wantData:      MetaPayload{},
		},
		{
			name:          "incremental without source",
			input:         `{"type": 3, "timestamp": 1, "data": {}}`,
			wantType:      EventTypeIncrementalSnapshot,
			wantTimestamp: true,
			wantData:      IncrementalPayload{Source: SourceUnknown},
		},
		{
			name:          "incremental fractional source",
			input:         `{"type": 3, "timestamp": 1, "data": {"source": 2.5}}`,
			wantType:      EventTypeIncrementalSnapshot,
			wantTimestamp: true,
			wantData:      IncrementalPayload{Source: SourceUnknown},
		},
		{
			name:          "custom tag",
			input:         `{"type": 5, "timestamp": 1, "data": {"tag": "checkout"}}`,
			wantType:      EventTypeCustom,
			wantTimestamp: true,
			wantData:      CustomPayload{Tag: "checkout"},
		},
		{
			name:          "plugin",
			input:         `{"type": 6, "timestamp": 1e3, "data": {"plugin": "rrweb/console@1"}}`,
			wantType:      EventTypePlugin,
			wantTimestamp: true,
			wantData:      OpaquePayload{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := DecodeEvent(json.RawMessage(tt.input))
			if event.Type != tt.wantType {
				t.Errorf("Type = %d, want %d", event.Type, tt.wantType)
			}
			if event.HasTimestamp != tt.wantTimestamp {
				t.Errorf("HasTimestamp = %v, want %v", event.HasTimestamp, tt.wantTimestamp)
			}
			if event.Data != tt.wantData {
				t.Errorf("Data = %#v, want %#v", event.Data, tt.wantData)
			}
		})
	}
}

func TestEventMarshalJSONKeepsRawElement(t *testing.T) {
	input := `{"type":3,"timestamp":2000,"data":{"source":0,"adds":[{"parentId":1}]}}`
	recording, err := ParseRecording([]byte(`{"events":[` + input + `]}`))
	if err != nil {
		t.Fatalf("ParseRecording() error = %v", err)
	}

	out, err := json.Marshal(recording.Events)
	if err != nil {
		t.Fatalf("Failed to marshal events: %v", err)
	}
	if string(out) != "["+input+"]" {
		t.Errorf("Marshaled events = %s, want [%s]", out, input)
	}
}
