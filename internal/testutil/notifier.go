package testutil

import (
	"context"
	"sync"
)

// Event is one recorded notification.
type Event struct {
	Kind  string // "reload" or "css"
	Paths []string
}

// RecordingNotifier implements task.Notifier by recording every event.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

// Reload implements task.Notifier.
func (n *RecordingNotifier) Reload(_ context.Context, paths ...string) {
	n.record("reload", paths)
}

// InjectCSS implements task.Notifier.
func (n *RecordingNotifier) InjectCSS(_ context.Context, paths ...string) {
	n.record("css", paths)
}

func (n *RecordingNotifier) record(kind string, paths []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Event{Kind: kind, Paths: append([]string(nil), paths...)})
}

// Events returns a copy of everything recorded so far.
func (n *RecordingNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}
