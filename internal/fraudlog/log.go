package fraudlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mgoltzsche/voicetrust/internal/pubsub"
	"github.com/mgoltzsche/voicetrust/internal/trust"
)

// Notifier forwards entries to an external system.
type Notifier interface {
	Notify(ctx context.Context, e Entry) error
}

// Log stores entries and streams them to subscribers as they are appended.
type Log struct {
	store    Store
	notifier Notifier
	pubsub   *pubsub.PubSub[Entry]
	mutex    sync.RWMutex
	closed   bool
}

var _ pubsub.Subscriber[Entry] = &Log{}

// New creates a Log. The notifier is optional.
func New(store Store, notifier Notifier) *Log {
	return &Log{
		store:    store,
		notifier: notifier,
		pubsub:   pubsub.New[Entry](),
	}
}

// Record appends an entry for the given assessment and returns it.
func (l *Log) Record(ctx context.Context, source Source, callSID string, a trust.Assessment) (Entry, error) {
	e := NewEntry(source, callSID, a)

	if err := l.Append(ctx, e); err != nil {
		return Entry{}, err
	}

	return e, nil
}

// Append stores the entry, publishes it to subscribers and notifies the notifier.
// A notification failure is logged but does not fail the append.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if l.closed {
		return ErrClosed
	}

	if err := l.store.Append(ctx, e); err != nil {
		return err
	}

	slog.Info("recorded call", "id", e.ID, "source", e.Source, "trustScore", e.TrustScore, "bankStatus", e.BankStatus)

	l.pubsub.Publish(e)

	if l.notifier != nil {
		if err := l.notifier.Notify(ctx, e); err != nil {
			slog.Warn(fmt.Sprintf("notify fraud log entry: %s", err), "id", e.ID)
		}
	}

	return nil
}

// List returns all entries, oldest first.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if l.closed {
		return nil, ErrClosed
	}

	return l.store.List(ctx)
}

// Subscribe streams entries appended after the call.
func (l *Log) Subscribe(ctx context.Context) pubsub.Subscription[Entry] {
	return l.pubsub.Subscribe(ctx)
}

// Close terminates all subscriptions and closes the store.
func (l *Log) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	l.pubsub.Stop()

	return l.store.Close()
}
