package call

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names a vendor call event.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

// Transcript kinds carried by message events.
const (
	MessageTranscript = "transcript"
	TranscriptPartial = "partial"
	TranscriptFinal   = "final"
)

// Event is one webhook delivery from the voice vendor.
type Event struct {
	Type    EventType     `json:"type"`
	Message *MessageEvent `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// MessageEvent is the payload of a "message" event. Only transcript
// messages affect the session; other kinds are ignored.
type MessageEvent struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

// Transcript builds a transcript message event.
func Transcript(role string, final bool, text string) Event {
	kind := TranscriptPartial
	if final {
		kind = TranscriptFinal
	}
	return Event{
		Type: EventMessage,
		Message: &MessageEvent{
			Type:           MessageTranscript,
			Role:           role,
			TranscriptType: kind,
			Transcript:     text,
		},
	}
}

// DecodeEvents parses a webhook body holding either one event object or an
// array of events.
func DecodeEvents(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("call: empty event payload")
	}

	var events []Event
	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("call: decoding events: %w", err)
		}
	} else {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("call: decoding event: %w", err)
		}
		events = []Event{ev}
	}

	for i, ev := range events {
		if ev.Type == "" {
			return nil, fmt.Errorf("call: event %d has no type", i)
		}
	}
	return events, nil
}
