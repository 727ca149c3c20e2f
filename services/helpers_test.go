package services

import (
	"context"
	"sync"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/notification"
)

// memoryJournal records appended events in order so tests can assert on
// them and feed them back through Restore.
type memoryJournal struct {
	mu     sync.Mutex
	events []event.Event
}

func (j *memoryJournal) Append(_ context.Context, e event.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e.Seq = int64(len(j.events) + 1)
	j.events = append(j.events, e)
}

func (j *memoryJournal) Events() []event.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]event.Event, len(j.events))
	copy(out, j.events)
	return out
}

// captureNotifier records notification requests instead of hitting the
// database.
type captureNotifier struct {
	mu   sync.Mutex
	sent []*notification.CreateNotificationRequest
}

func (n *captureNotifier) Notify(_ context.Context, req *notification.CreateNotificationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
}

func (n *captureNotifier) Sent() []*notification.CreateNotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*notification.CreateNotificationRequest, len(n.sent))
	copy(out, n.sent)
	return out
}
