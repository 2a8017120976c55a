// Package stream carries server-pushed events for long-running actions.
//
// A streaming action yields an ordered, finite, non-restartable sequence of
// Events. Events arrive in exactly the order the server emitted them; the
// sequence carries at most one terminal event (result, error, or end
// marker) and nothing after it. The wire framing (SSE or WebSocket) is
// decoded here and translated 1:1 into Events.
package stream

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates the event variants.
type EventType string

const (
	// EventProgress is an intermediate progress or log line.
	EventProgress EventType = "progress"
	// EventWarning is a non-fatal warning emitted mid-operation.
	EventWarning EventType = "warning"
	// EventResult is the terminal success payload.
	EventResult EventType = "result"
	// EventError is the terminal error payload.
	EventError EventType = "error"
	// EventEnd is the terminal end-of-stream marker with no payload.
	EventEnd EventType = "end"
)

// Event is one unit of the server-push sequence.
type Event struct {
	Type EventType
	// Message is the human-readable line for progress and warning events,
	// and the error summary for error events.
	Message string
	// Payload is the structured body for result and error events.
	Payload json.RawMessage
	// Time is when the event was decoded.
	Time time.Time
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventResult, EventError, EventEnd:
		return true
	}
	return false
}

// wireEvent is the payload shape shared by the stream protocols: a type
// discriminator plus a JSON body. The body's optional "msg" field carries
// the display line. Treated as a versioned external contract: unknown
// discriminators degrade to progress events rather than failing the stream.
type wireEvent struct {
	Msg     string `json:"msg"`
	Success *bool  `json:"success"`
}

// FromWire translates one decoded wire frame into an Event. kind is the
// frame's type discriminator, data its raw payload.
func FromWire(kind string, data []byte) Event {
	ev := Event{Time: time.Now()}

	var body wireEvent
	if len(data) > 0 {
		// Non-JSON payloads are kept verbatim as the message.
		if err := json.Unmarshal(data, &body); err != nil {
			body.Msg = string(data)
		}
	}

	switch kind {
	case "warning":
		ev.Type = EventWarning
		ev.Message = body.Msg
	case "result", "success":
		ev.Type = EventResult
		ev.Payload = append(json.RawMessage(nil), data...)
	case "error", "failure":
		ev.Type = EventError
		ev.Message = body.Msg
		ev.Payload = append(json.RawMessage(nil), data...)
	case "end", "done":
		ev.Type = EventEnd
		if body.Success != nil && !*body.Success {
			ev.Type = EventError
			ev.Message = body.Msg
			ev.Payload = append(json.RawMessage(nil), data...)
		}
	default:
		ev.Type = EventProgress
		ev.Message = body.Msg
		if ev.Message == "" {
			ev.Message = string(data)
		}
	}
	return ev
}

// Errorf builds a terminal error event from a local condition (decode
// failure, cancelled context). The message must never contain secrets.
func Errorf(format string, args ...interface{}) Event {
	return Event{
		Type:    EventError,
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now(),
	}
}
