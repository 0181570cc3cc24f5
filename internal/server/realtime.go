package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
)

const (
	realtimeEventHeartbeat = "heartbeat"
	realtimeSourceBackend  = "sitebook-backend"
	defaultRealtimeBuffer  = 16
)

// RealtimeMessage is one notification change delivered to stream subscribers of an assignee.
type RealtimeMessage struct {
	Assignee     string                     `json:"assignee"`
	EventType    string                     `json:"event"`
	Notification notifications.Notification `json:"notification"`
	Timestamp    time.Time                  `json:"timestamp"`
	Source       string                     `json:"source"`
}

// RealtimeDispatcher fans notification events out to per-assignee subscribers.
// Slow subscribers drop messages rather than block publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  defaultRealtimeBuffer,
	}
}

// Subscribe registers a stream for assignee until ctx ends or the returned cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, assignee string) (<-chan RealtimeMessage, func()) {
	if assignee == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(assignee, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(assignee, subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish implements notifications.Publisher. Delivery never fails the caller.
func (d *RealtimeDispatcher) Publish(_ context.Context, event notifications.Event) error {
	d.Broadcast(RealtimeMessage{
		Assignee:     event.Notification.Assignee,
		EventType:    string(event.Kind),
		Notification: event.Notification,
		Timestamp:    event.OccurredAt,
		Source:       realtimeSourceBackend,
	})
	return nil
}

// Broadcast delivers message to every current subscriber of its assignee.
func (d *RealtimeDispatcher) Broadcast(message RealtimeMessage) {
	if message.Assignee == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.Assignee]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the open streams for assignee.
func (d *RealtimeDispatcher) SubscriberCount(assignee string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[assignee])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(assignee string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[assignee]; !ok {
		d.subscribers[assignee] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[assignee][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(assignee string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[assignee]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, assignee)
		}
	}
	d.mu.Unlock()
}
