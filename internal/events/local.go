package events

import (
	"context"
	"sync"
	"time"
)

type subscriber struct {
	scope  string
	topics []Topic
	ch     chan Event
}

// LocalBus is an in-process Bus for a single node.
type LocalBus struct {
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	closed   bool
	versions map[string]int64
	subs     map[*subscriber]struct{}
}

// NewLocalBus constructs a LocalBus. recorder may be nil.
func NewLocalBus(recorder Recorder) *LocalBus {
	return &LocalBus{
		recorder: recorder,
		now:      time.Now,
		versions: make(map[string]int64),
		subs:     make(map[*subscriber]struct{}),
	}
}

// Publish implements Bus.
func (b *LocalBus) Publish(ctx context.Context, evt Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return evt, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return evt, ErrClosed
	}
	key := versionKey(evt.Topic, evt.Scope)
	b.versions[key]++
	evt.Version = b.versions[key]
	if evt.At.IsZero() {
		evt.At = b.now()
	}
	b.observe(evt.Topic, "published")
	for sub := range b.subs {
		if sub.scope != evt.Scope || !wants(sub.topics, evt.Topic) {
			continue
		}
		if offer(sub.ch, evt) {
			b.observe(evt.Topic, "dropped")
		}
	}
	return evt, nil
}

// Subscribe implements Bus.
func (b *LocalBus) Subscribe(ctx context.Context, scope string, topics ...Topic) (<-chan Event, error) {
	sub := &subscriber{scope: scope, topics: topics, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
	}()
	return sub.ch, nil
}

// Close detaches every subscriber.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
	return nil
}

func (b *LocalBus) observe(topic Topic, action string) {
	if b.recorder != nil {
		b.recorder.ObserveBusEvent(string(topic), action)
	}
}

func versionKey(topic Topic, scope string) string {
	return string(topic) + ":" + scope
}
