// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// EventKind identifies the kind of an input Event.
type EventKind uint8

// Event kinds.
const (
	EventResize EventKind = iota
	EventClose
	EventKeyPress
	EventKeyRelease
	EventText
	EventMouseMove
	EventMousePress
	EventMouseRelease
	EventScroll
	EventFocus
)

var eventKindNames = [...]string{
	EventResize:       "Resize",
	EventClose:        "Close",
	EventKeyPress:     "KeyPress",
	EventKeyRelease:   "KeyRelease",
	EventText:         "Text",
	EventMouseMove:    "MouseMove",
	EventMousePress:   "MousePress",
	EventMouseRelease: "MouseRelease",
	EventScroll:       "Scroll",
	EventFocus:        "Focus",
}

// String returns the name of the event kind.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "Unknown"
}

// Event is an input event delivered on the frame loop goroutine.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind EventKind

	// Width and Height are the logical size for EventResize.
	Width, Height int

	Key  gpucontext.Key
	Mods gpucontext.Modifiers

	Button gpucontext.MouseButton

	// X and Y are the cursor position, or the scroll delta for EventScroll.
	X, Y float64

	Text    string
	Focused bool
}

// EventQueue buffers events produced on other goroutines until the frame
// loop drains them. The zero value is ready to use.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends ev.
func (q *EventQueue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drain removes and returns all queued events in arrival order.
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	events := q.events
	q.events = nil
	q.mu.Unlock()
	return events
}

// Attach subscribes the queue to src. EventSource has no close callback;
// windowing code pushes EventClose itself.
func (q *EventQueue) Attach(src gpucontext.EventSource) {
	src.OnResize(func(w, h int) {
		q.Push(Event{Kind: EventResize, Width: w, Height: h})
	})
	src.OnKeyPress(func(key gpucontext.Key, mods gpucontext.Modifiers) {
		q.Push(Event{Kind: EventKeyPress, Key: key, Mods: mods})
	})
	src.OnKeyRelease(func(key gpucontext.Key, mods gpucontext.Modifiers) {
		q.Push(Event{Kind: EventKeyRelease, Key: key, Mods: mods})
	})
	src.OnTextInput(func(text string) {
		q.Push(Event{Kind: EventText, Text: text})
	})
	src.OnMouseMove(func(x, y float64) {
		q.Push(Event{Kind: EventMouseMove, X: x, Y: y})
	})
	src.OnMousePress(func(b gpucontext.MouseButton, x, y float64) {
		q.Push(Event{Kind: EventMousePress, Button: b, X: x, Y: y})
	})
	src.OnMouseRelease(func(b gpucontext.MouseButton, x, y float64) {
		q.Push(Event{Kind: EventMouseRelease, Button: b, X: x, Y: y})
	})
	src.OnScroll(func(dx, dy float64) {
		q.Push(Event{Kind: EventScroll, X: dx, Y: dy})
	})
	src.OnFocus(func(focused bool) {
		q.Push(Event{Kind: EventFocus, Focused: focused})
	})
}
