package http

import (
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notices := s.notices.Drain(userFromContext(r.Context()).ID)
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notices})
}

// handleRefreshEvents streams the refresh key as server-sent events. The
// current key is sent first, then every newer key the subscription observes.
func (s *Server) handleRefreshEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	sub := s.signal.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	last := s.signal.Key()
	writeRefreshEvent(w, last)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case key := <-sub.C():
			if key <= last {
				continue
			}
			last = key
			writeRefreshEvent(w, key)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeRefreshEvent(w http.ResponseWriter, key uint64) {
	_, _ = fmt.Fprintf(w, "event: refresh\nid: %d\ndata: {\"key\":%d}\n\n", key, key)
}
