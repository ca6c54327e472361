package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hypermemo/hypermemo/internal/domain"
)

// sseFrame is the JSON payload of one server-sent event. The type field
// discriminates matches, content, done and error frames.
type sseFrame struct {
	Type    string          `json:"type"`
	Matches []matchResponse `json:"matches,omitempty"`
	Content string          `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// sseWriter streams query events as server-sent events, flushing after
// every frame so fragments reach the client as they are generated.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Write emits one event frame. The event name doubles the type field so
// clients can subscribe with addEventListener.
func (s *sseWriter) Write(ev domain.StreamEvent) error {
	frame := sseFrame{Type: string(ev.Type)}
	switch ev.Type {
	case domain.StreamEventMatches:
		frame.Matches = matchesToDTO(ev.Matches)
	case domain.StreamEventContent:
		frame.Content = ev.Content
	case domain.StreamEventError:
		frame.Error = ev.Err
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}
