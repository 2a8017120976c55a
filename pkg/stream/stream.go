package stream

import (
	"context"
	"io"
)

// FrameSource is a pull-based decoder of wire frames: SSEDecoder or
// WSReader.
type FrameSource interface {
	// Next returns the next frame, io.EOF on clean close, or a transport
	// or decode error.
	Next() (*Frame, error)
}

// Stream is a lazy, finite, non-restartable event sequence. Exactly one
// goroutine decodes frames and hands them to the consumer through Events;
// delivery order matches arrival order and the channel closes after the
// terminal event.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
}

// Events returns the ordered event sequence. The channel is closed once a
// terminal event has been delivered.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close aborts the stream early. Safe to call after the stream ended.
func (s *Stream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Go starts the decode loop for src and returns the consuming side.
// closeConn must interrupt a blocked src.Next (closing the HTTP response
// body or the WebSocket connection); it is invoked on cancellation and
// once the stream ends.
//
// The channel is unbuffered so decoding is paced by the producer and never
// runs ahead of the consumer; a slow consumer delays decoding, it never
// loses or reorders events.
func Go(ctx context.Context, src FrameSource, closeConn func()) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event),
		cancel: cancel,
	}

	// Close the connection as soon as cancellation is requested so a
	// blocked read returns promptly.
	go func() {
		<-ctx.Done()
		closeConn()
	}()

	go func() {
		defer close(s.events)
		defer cancel()

		for {
			frame, err := src.Next()
			if err != nil {
				if err == io.EOF {
					// Connection closed without an explicit end marker:
					// synthesize one unless the caller cancelled.
					if ctx.Err() != nil {
						s.deliver(ctx, Errorf("stream cancelled"))
						return
					}
					s.deliver(ctx, Event{Type: EventEnd})
					return
				}
				if ctx.Err() != nil {
					s.deliver(ctx, Errorf("stream cancelled"))
					return
				}
				// A malformed or truncated frame terminates the stream
				// early with an error event rather than dropping data.
				s.deliver(ctx, Errorf("stream decode failed: %v", err))
				return
			}

			ev := FromWire(frame.Type, []byte(frame.Data))
			if !s.deliver(ctx, ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}()

	return s
}

// deliver hands one event to the consumer, honouring cancellation. After a
// cancelled delivery no further events are produced.
func (s *Stream) deliver(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		// Best-effort: the consumer may already be gone.
		select {
		case s.events <- ev:
		default:
		}
		return false
	}
}

// Single returns a Stream that delivers exactly one terminal event, used
// for non-streaming request/response actions so every execution exposes
// the same consumer contract.
func Single(ev Event) *Stream {
	s := &Stream{events: make(chan Event, 1)}
	s.events <- ev
	close(s.events)
	return s
}
