package audit

import (
	"context"
	"sync"
)

// Bus wraps a Log with in-process fan-out notification. Subscribers
// only receive events that belong to the user they subscribed as.
type Bus struct {
	Log
	mu   sync.RWMutex
	subs map[chan *Event]string
}

// NewBus creates a Bus wrapping the given log.
func NewBus(log Log) *Bus {
	return &Bus{
		Log:  log,
		subs: make(map[chan *Event]string),
	}
}

// Append delegates to the underlying log, then fans out to the owner's subscribers.
func (b *Bus) Append(ctx context.Context, eventType, userID string, content map[string]any, causes []string) (*Event, error) {
	e, err := b.Log.Append(ctx, eventType, userID, content, causes)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	for ch, owner := range b.subs {
		if owner != e.UserID {
			continue
		}
		select {
		case ch <- e:
		default:
			// subscriber is behind; drop to avoid blocking Append
		}
	}
	b.mu.RUnlock()

	return e, nil
}

// Subscribe returns a buffered channel that receives the user's new events.
func (b *Bus) Subscribe(userID string) chan *Event {
	ch := make(chan *Event, 64)
	b.mu.Lock()
	b.subs[ch] = userID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan *Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
