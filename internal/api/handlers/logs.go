// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/project"
)

func isConnectionClosed(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "use of closed network connection")
}

// LogMessage is a frame on the log websocket.
type LogMessage struct {
	Type      string       `json:"type"` // snapshot, entry, cleared
	ProjectID string       `json:"project_id,omitempty"`
	Entries   []logs.Entry `json:"entries,omitempty"`
	Entry     *logs.Entry  `json:"entry,omitempty"`
}

// LogHandler handles project log API requests.
type LogHandler struct {
	buf      *logs.Buffer
	registry *project.Registry
}

// NewLogHandler creates a new log handler.
func NewLogHandler(buf *logs.Buffer, registry *project.Registry) *LogHandler {
	return &LogHandler{buf: buf, registry: registry}
}

func (h *LogHandler) projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := h.registry.Get(id); err != nil {
		writeDomainError(w, err)
		return "", false
	}
	return id, true
}

// Get returns a project's buffered entries, optionally filtered by a
// case-insensitive substring (q) and a level.
func (h *LogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	q := query.Get("q")
	levelStr := query.Get("level")
	level := logs.ParseLevel(levelStr)
	if levelStr != "" && level == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "level must be info, warn, or error")
		return
	}

	var entries []logs.Entry
	if q == "" && level == "" {
		entries = h.buf.Get(id)
	} else {
		entries = h.buf.Search(id, q, level)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project": id,
		"entries": entries,
	})
}

// Clear empties a project's buffer.
func (h *LogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	h.buf.Clear(id)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project": id,
		"cleared": true,
	})
}

// ClearAll empties every buffer.
func (h *LogHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.buf.ClearAll()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": true,
	})
}

// Stats returns entry counts by level.
func (h *LogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.buf.Stats(id))
}

// Errors returns the most recent error entries.
func (h *LogHandler) Errors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project": id,
		"entries": h.buf.RecentErrors(id, limit),
	})
}

// Usage reports buffer memory usage across projects.
func (h *LogHandler) Usage(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.buf.Usage())
}

// Stream sends the current buffer, then live entries and clear markers, over
// a WebSocket.
func (h *LogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Log stream: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, ch := h.buf.SubscribeWithSnapshot(id)
	defer h.buf.Unsubscribe(ch)

	var writeMu sync.Mutex
	write := func(msg LogMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := write(LogMessage{Type: "snapshot", ProjectID: id, Entries: snapshot}); err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!isConnectionClosed(err) {
					log.Printf("Log stream %s: read error: %v", id, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			msg := LogMessage{ProjectID: id}
			switch ev.Kind {
			case logs.EventEntry:
				msg.Type = "entry"
				msg.Entry = ev.Entry
			case logs.EventCleared:
				msg.Type = "cleared"
			default:
				continue
			}
			if err := write(msg); err != nil {
				if !isConnectionClosed(err) {
					log.Printf("Log stream %s: write failed: %v", id, err)
				}
				return
			}

		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			writeMu.Unlock()
			if err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
