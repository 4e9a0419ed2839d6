// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events delivers progress and result notifications. Delivery is
// fire-and-forget: emitters never block the caller on a slow consumer and
// never report failure back.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Emitter publishes one event for a session.
type Emitter interface {
	Emit(name string, payload map[string]any, sessionID string)
}

// Event is one emitted notification.
type Event struct {
	Name      string         `json:"event"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload"`
	Time      time.Time      `json:"time"`
}

func newEvent(name string, payload map[string]any, sessionID string) Event {
	return Event{Name: name, SessionID: sessionID, Payload: payload, Time: time.Now().UTC()}
}

// Message returns the event's primary text: message, error, or report.
func (e Event) Message() string {
	for _, k := range []string{"message", "error", "report"} {
		if s, ok := e.Payload[k].(string); ok {
			return s
		}
	}
	return ""
}

// WriterEmitter writes events to w, either as JSON lines or as one
// "[name] message" line per event.
type WriterEmitter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewWriterEmitter returns an emitter writing to w. With asJSON set each
// event is one JSON object per line.
func NewWriterEmitter(w io.Writer, asJSON bool) *WriterEmitter {
	return &WriterEmitter{w: w, json: asJSON}
}

// Emit implements Emitter.
func (e *WriterEmitter) Emit(name string, payload map[string]any, sessionID string) {
	ev := newEvent(name, payload, sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.json {
		_ = json.NewEncoder(e.w).Encode(ev)
		return
	}
	fmt.Fprintf(e.w, "[%s] %s\n", name, firstLine(ev.Message()))
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}

// Multi fans one event out to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(name string, payload map[string]any, sessionID string) {
	for _, e := range m {
		if e != nil {
			e.Emit(name, payload, sessionID)
		}
	}
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(string, map[string]any, string) {}
