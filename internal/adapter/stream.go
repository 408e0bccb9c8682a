package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	sseDataPrefix = "data: "
	// SSEDone terminates every stream.
	SSEDone = "data: [DONE]\n\n"
)

// FormatSSE frames one JSON payload as an SSE data event.
func FormatSSE(data []byte) []byte {
	out := make([]byte, 0, len(sseDataPrefix)+len(data)+2)
	out = append(out, sseDataPrefix...)
	out = append(out, data...)
	return append(out, '\n', '\n')
}

// StreamResult describes how far a stream got.
type StreamResult struct {
	ID     string
	Chunks int
	// Completed is false when the client went away before the sentinel was
	// written.
	Completed bool
}

// Stream writes content to w as chat.completion.chunk events followed by
// the [DONE] sentinel. A cancelled ctx or a failing write ends the stream
// quietly; only an encoding failure is returned as an error.
func (a *Adapter) Stream(ctx context.Context, w http.ResponseWriter, content string) (StreamResult, error) {
	rc := http.NewResponseController(w)
	res := StreamResult{ID: a.newID("chatcmpl-")}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for chunk := range a.Chunks(res.ID, content) {
		if res.Chunks > 0 && a.cfg.ChunkDelay > 0 {
			if timer == nil {
				timer = time.NewTimer(a.cfg.ChunkDelay)
			} else {
				timer.Reset(a.cfg.ChunkDelay)
			}
			select {
			case <-ctx.Done():
				return res, nil
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return res, nil
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			return res, fmt.Errorf("adapter: marshal chunk: %w", err)
		}
		if _, err := w.Write(FormatSSE(data)); err != nil {
			return res, nil
		}
		_ = rc.Flush()
		res.Chunks++
	}

	if ctx.Err() != nil {
		return res, nil
	}
	if _, err := w.Write([]byte(SSEDone)); err != nil {
		return res, nil
	}
	_ = rc.Flush()
	res.Completed = true
	return res, nil
}
