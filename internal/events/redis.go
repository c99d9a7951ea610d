package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "pactum:events:"
	versionPrefix = "pactum:events:version:"
	versionTTL    = 24 * time.Hour
)

// RedisBus fans events out across nodes through Redis Pub/Sub. Versions are
// Redis counters so every node stamps the same sequence.
type RedisBus struct {
	client   *redis.Client
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewRedisBus constructs a RedisBus.
func NewRedisBus(client *redis.Client, logger *slog.Logger, recorder Recorder) *RedisBus {
	return &RedisBus{client: client, logger: logger, recorder: recorder, now: time.Now}
}

// Publish implements Bus.
func (b *RedisBus) Publish(ctx context.Context, evt Event) (Event, error) {
	key := versionPrefix + versionKey(evt.Topic, evt.Scope)
	pipe := b.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return evt, fmt.Errorf("events: version %s: %w", key, err)
	}
	evt.Version = incr.Val()
	if evt.At.IsZero() {
		evt.At = b.now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return evt, err
	}
	if err := b.client.Publish(ctx, channelPrefix+evt.Scope, payload).Err(); err != nil {
		return evt, fmt.Errorf("events: publish: %w", err)
	}
	b.observe(evt.Topic, "published")
	return evt, nil
}

// Subscribe implements Bus. It returns once Redis confirmed the subscription.
func (b *RedisBus) Subscribe(ctx context.Context, scope string, topics ...Topic) (<-chan Event, error) {
	pubsub := b.client.Subscribe(ctx, channelPrefix+scope)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("events: subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Warn("discard malformed event", slog.String("channel", msg.Channel), slog.Any("error", err))
					continue
				}
				if evt.Scope != scope || !wants(topics, evt.Topic) {
					continue
				}
				if offer(out, evt) {
					b.observe(evt.Topic, "dropped")
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) observe(topic Topic, action string) {
	if b.recorder != nil {
		b.recorder.ObserveBusEvent(string(topic), action)
	}
}
