// Package events carries cross-page signals between requests of the same
// browser session: a tenant scope switch or a project update made in one tab
// reaches every other open page of that visitor.
package events

import (
	"context"
	"errors"
	"time"
)

// Topic names a kind of signal.
type Topic string

const (
	// TopicTenantScope fires when a company administrator points the session at
	// another client's project.
	TopicTenantScope Topic = "tenant_scope"
	// TopicProjectUpdated fires after a project was modified.
	TopicProjectUpdated Topic = "project_updated"
)

// Topics lists every known topic.
var Topics = []Topic{TopicTenantScope, TopicProjectUpdated}

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("events: bus closed")

// Event is one signal. Version increases monotonically per (Topic, Scope).
type Event struct {
	Topic     Topic     `json:"topic"`
	Scope     string    `json:"scope"`
	Version   int64     `json:"version"`
	ClientID  string    `json:"client_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	At        time.Time `json:"at"`
}

// Bus delivers events to subscribers of the same scope.
type Bus interface {
	// Publish stamps the event with the next version of its (topic, scope)
	// and delivers it. The stamped event is returned.
	Publish(ctx context.Context, evt Event) (Event, error)
	// Subscribe returns a channel receiving events of scope for the given
	// topics, or every topic when none is given. The channel is closed once
	// ctx is done.
	Subscribe(ctx context.Context, scope string, topics ...Topic) (<-chan Event, error)
}

// Recorder observes bus traffic.
type Recorder interface {
	ObserveBusEvent(topic, action string)
}

const subscriberBuffer = 8

func wants(topics []Topic, topic Topic) bool {
	if len(topics) == 0 {
		return true
	}
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// offer delivers evt without blocking. A full buffer drops its oldest entry;
// subscribers only ever act on the most recent state.
func offer(ch chan Event, evt Event) (dropped bool) {
	for {
		select {
		case ch <- evt:
			return dropped
		default:
		}
		select {
		case <-ch:
			dropped = true
		default:
		}
	}
}
