package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// handleQuestionStream handles GET /v1/questions/stream (SSE endpoint).
// Each event is a complete snapshot: JSON by default, or with
// ?format=html the list fragment rendered for the caller's session.
// Snapshots conflate, so a slow client skips straight to the newest one.
func (s *QnAServer) handleQuestionStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "html" {
		writeError(w, http.StatusBadRequest, "format must be json or html")
		return
	}
	session := s.session(identityFrom(r.Context()))
	labels := i18n.For(s.requestLang(r))

	sub := s.hub.Subscribe()
	defer sub.Cancel()
	release := s.Presence.Connect(session.UID(), "sse")
	defer release()

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := encodeSnapshot(snap, format, session, labels)
			if err != nil {
				s.logger.Warn("failed to encode snapshot for SSE", "seq", snap.Seq, "error", err)
				continue
			}
			writeSSEEvent(w, snap.Seq, "snapshot", data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
			s.Presence.Touch(session.UID())
		}
	}
}

func encodeSnapshot(snap model.Snapshot, format string, session model.ViewerSession, labels i18n.Labels) ([]byte, error) {
	if format == "html" {
		var buf bytes.Buffer
		tree := view.Render(snap.Questions, session, labels, nil)
		if err := view.WriteListHTML(&buf, tree); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if snap.Questions == nil {
		snap.Questions = []*model.Question{}
	}
	return json.Marshal(snap)
}

// writeSSEEvent writes a single SSE event. Multi-line payloads become one
// data line per line, which the client joins back with newlines.
func writeSSEEvent(w io.Writer, id uint64, event string, data []byte) {
	fmt.Fprintf(w, "id:%d\n", id)
	fmt.Fprintf(w, "event:%s\n", event)
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(w, "data:%s\n", line)
	}
	fmt.Fprint(w, "\n")
}
