package domain

// StreamEventType discriminates streamed query events.
type StreamEventType string

const (
	// StreamEventMatches carries the final match list. Emitted exactly
	// once, always first.
	StreamEventMatches StreamEventType = "matches"
	// StreamEventContent carries one incremental answer fragment.
	StreamEventContent StreamEventType = "content"
	// StreamEventDone terminates a successful stream.
	StreamEventDone StreamEventType = "done"
	// StreamEventError terminates a failed stream. Content events already
	// emitted are not retracted: the answer is incomplete, not corrupt.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one frame of a streamed query response. Exactly one
// terminal event (done or error) closes every stream.
type StreamEvent struct {
	Type    StreamEventType
	Matches []Match
	Content string
	Err     string
}

// IsTerminal reports whether the event closes the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventDone || e.Type == StreamEventError
}
