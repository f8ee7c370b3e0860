package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

const DefaultSessionTopic = "session.events"

const listenerBuffer = 32

var ErrBusClosed = errors.New("session bus closed")

// Publisher emits session-change events
type Publisher interface {
	Publish(ctx context.Context, event models.SessionEvent) error
}

// SessionBus carries session-change events over a watermill pub/sub and fans
// them out to local listeners keyed by session id. Events of one session are
// delivered in the order the bus receives them.
type SessionBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger

	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
	closed    bool
	done      chan struct{}
}

// NewSessionBus builds a bus over an existing watermill publisher/subscriber pair
func NewSessionBus(publisher message.Publisher, subscriber message.Subscriber, topic string, logger *slog.Logger) *SessionBus {
	if topic == "" {
		topic = DefaultSessionTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionBus{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      topic,
		logger:     logger,
		listeners:  make(map[string]map[*Listener]struct{}),
		done:       make(chan struct{}),
	}
}

// NewInProcessBus is a single-instance bus on a watermill go channel
func NewInProcessBus(topic string, logger *slog.Logger) *SessionBus {
	if logger == nil {
		logger = slog.Default()
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return NewSessionBus(pubSub, pubSub, topic, logger)
}

// Start subscribes to the topic and dispatches messages until ctx is done or the bus is closed
func (b *SessionBus) Start(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.topic, err)
	}

	go b.consume(messages)
	return nil
}

func (b *SessionBus) consume(messages <-chan *message.Message) {
	for msg := range messages {
		var event models.SessionEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			b.logger.Error("Dropping malformed session event", "message_id", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		b.dispatch(event)
		msg.Ack()
	}
}

func (b *SessionBus) dispatch(event models.SessionEvent) {
	b.mu.RLock()
	targets := make([]*Listener, 0, len(b.listeners[event.SessionID]))
	for l := range b.listeners[event.SessionID] {
		targets = append(targets, l)
	}
	b.mu.RUnlock()

	// A listener whose buffer is full loses the event rather than stalling
	// delivery for every other session.
	for _, l := range targets {
		select {
		case l.events <- event:
		case <-l.done:
		case <-b.done:
			return
		default:
			b.logger.Warn("Dropping session event for slow listener",
				"session_id", event.SessionID, "event_type", event.Type, "buffer", listenerBuffer)
		}
	}
}

// Publish emits event on the bus topic
func (b *SessionBus) Publish(ctx context.Context, event models.SessionEvent) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode session event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", event.SessionID)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.SetContext(ctx)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}

// Listen registers a listener for one session. The caller must Close it.
func (b *SessionBus) Listen(sessionID string) *Listener {
	l := &Listener{
		bus:       b,
		sessionID: sessionID,
		events:    make(chan models.SessionEvent, listenerBuffer),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		l.closeOnce.Do(func() { close(l.done) })
		return l
	}
	if b.listeners[sessionID] == nil {
		b.listeners[sessionID] = make(map[*Listener]struct{})
	}
	b.listeners[sessionID][l] = struct{}{}
	return l
}

func (b *SessionBus) remove(l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.listeners[l.sessionID]
	delete(set, l)
	if len(set) == 0 {
		delete(b.listeners, l.sessionID)
	}
}

// ListenerCount reports the number of live listeners
func (b *SessionBus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, set := range b.listeners {
		n += len(set)
	}
	return n
}

// Close stops dispatching and closes the underlying pub/sub
func (b *SessionBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listener receives the events of one session
type Listener struct {
	bus       *SessionBus
	sessionID string
	events    chan models.SessionEvent
	done      chan struct{}
	closeOnce sync.Once
}

// Events returns the event channel. It is never closed; select on Done.
func (l *Listener) Events() <-chan models.SessionEvent {
	return l.events
}

// Done is closed once the listener is released
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close releases the listener. Safe to call more than once.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.bus.remove(l)
	})
}
