package stream

import (
	"bufio"
	"io"
	"strings"
)

// Frame is one decoded server-sent event before translation into an Event.
type Frame struct {
	// Type is the "event:" field, defaulting to "message".
	Type string
	// Data is the concatenated "data:" lines, newline-joined.
	Data string
	// ID is the optional "id:" field.
	ID string
}

// SSEDecoder decodes a text/event-stream body into Frames. It is
// pull-based: the caller drives Next, so frames are handed over in exactly
// arrival order with no buffering beyond line scanning.
type SSEDecoder struct {
	scanner *bufio.Scanner
}

// NewSSEDecoder wraps a response body. The caller retains ownership of r
// and closes it to abort the stream.
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	sc := bufio.NewScanner(r)
	// Result payloads can be large; a single data line may exceed the
	// default 64K token limit.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SSEDecoder{scanner: sc}
}

// Next returns the next complete frame. It returns io.EOF when the server
// closes the stream cleanly, or the underlying read error.
func (d *SSEDecoder) Next() (*Frame, error) {
	var frame *Frame

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// A blank line terminates the frame.
		if line == "" {
			if frame != nil && (frame.Data != "" || frame.Type != "") {
				if frame.Type == "" {
					frame.Type = "message"
				}
				return frame, nil
			}
			frame = nil
			continue
		}

		// Lines starting with ":" are comments (heartbeats).
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimPrefix(value, " ")

		if frame == nil {
			frame = &Frame{}
		}
		switch field {
		case "event":
			frame.Type = value
		case "data":
			if frame.Data != "" {
				frame.Data += "\n"
			}
			frame.Data += value
		case "id":
			frame.ID = value
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	// Flush a final frame that was not newline-terminated.
	if frame != nil && (frame.Data != "" || frame.Type != "") {
		if frame.Type == "" {
			frame.Type = "message"
		}
		return frame, nil
	}
	return nil, io.EOF
}
