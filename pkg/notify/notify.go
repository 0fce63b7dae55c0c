// Package notify provides NotificationSink implementations.
//
// Sinks are fire-and-forget by contract: they never block a mutation and
// cannot fail one. A slow or broken consumer loses events rather than
// stalling the tree engine.
package notify

import (
	"github.com/marmos91/davtree/internal/logger"
)

// Event is one tree change notification.
type Event struct {
	// Kind is the change type.
	Kind EventKind

	// Path is the affected item's path. For moves this is the old path.
	Path string

	// NewPath is the destination path of a move, empty otherwise.
	NewPath string
}

// EventKind is the closed set of notification kinds.
type EventKind int

const (
	EventCreated EventKind = iota
	EventMoved
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventMoved:
		return "moved"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// LogSink writes every notification to the log at debug level.
type LogSink struct{}

// NewLogSink creates a logging sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (*LogSink) NotifyCreated(path string) {
	logger.Debug("notify: created '%s'", path)
}

func (*LogSink) NotifyMoved(oldPath, newPath string) {
	logger.Debug("notify: moved '%s' -> '%s'", oldPath, newPath)
}

func (*LogSink) NotifyDeleted(path string) {
	logger.Debug("notify: deleted '%s'", path)
}

// ChannelSink fans notifications out to a buffered channel for an external
// consumer (push transport, cache invalidation, audit trail).
//
// When the buffer is full events are dropped, never blocked on: losing a
// notification is acceptable, stalling a mutation is not.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a sink with the given buffer capacity.
func NewChannelSink(capacity int) *ChannelSink {
	if capacity <= 0 {
		capacity = 64
	}
	return &ChannelSink{events: make(chan Event, capacity)}
}

// Events returns the channel consumers receive from.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

func (s *ChannelSink) NotifyCreated(path string) {
	s.send(Event{Kind: EventCreated, Path: path})
}

func (s *ChannelSink) NotifyMoved(oldPath, newPath string) {
	s.send(Event{Kind: EventMoved, Path: oldPath, NewPath: newPath})
}

func (s *ChannelSink) NotifyDeleted(path string) {
	s.send(Event{Kind: EventDeleted, Path: path})
}

func (s *ChannelSink) send(event Event) {
	select {
	case s.events <- event:
	default:
		logger.Warn("notify: buffer full, dropping %s event for '%s'", event.Kind, event.Path)
	}
}
