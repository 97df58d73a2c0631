// Package pubsub fans events out to in-process subscribers such as fraud log dashboards.
package pubsub

import (
	"context"
	"log/slog"
	"sync"
)

const defaultBufferSize = 32

type Publisher[E any] interface {
	Publish(evt E)
}

type Subscriber[E any] interface {
	Subscribe(ctx context.Context) Subscription[E]
}

type Subscription[E any] interface {
	ResultChan() <-chan E
	Stop()
}

// PubSub delivers each published event to all current subscribers.
// A subscriber whose buffer is full misses the event instead of blocking the publisher.
type PubSub[E any] struct {
	mutex         sync.Mutex
	subscriptions map[int64]*subscription[E]
	seq           int64
	bufferSize    int
	stopped       bool
}

func New[E any]() *PubSub[E] {
	return NewWithBuffer[E](defaultBufferSize)
}

// NewWithBuffer creates a PubSub whose subscriptions buffer up to size events.
func NewWithBuffer[E any](size int) *PubSub[E] {
	if size < 1 {
		size = 1
	}

	return &PubSub[E]{subscriptions: map[int64]*subscription[E]{}, bufferSize: size}
}

// Stop terminates all subscriptions. Later subscriptions are closed immediately.
func (p *PubSub[E]) Stop() {
	p.mutex.Lock()
	p.stopped = true
	subscriptions := make([]*subscription[E], 0, len(p.subscriptions))
	for _, s := range p.subscriptions {
		subscriptions = append(subscriptions, s)
	}
	p.mutex.Unlock()

	for _, s := range subscriptions {
		s.Stop()
	}
}

// Subscribe registers a subscription that ends with the given context or when stopped.
func (p *PubSub[E]) Subscribe(ctx context.Context) Subscription[E] {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopped {
		return closedSubscription[E]{}
	}

	p.seq++

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription[E]{
		id:     p.seq,
		cancel: cancel,
		pubsub: p,
		ch:     make(chan E, p.bufferSize),
	}
	p.subscriptions[s.id] = s

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s
}

// Publish delivers the event without blocking.
func (p *PubSub[E]) Publish(evt E) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopped {
		return
	}

	for _, s := range p.subscriptions {
		select {
		case s.ch <- evt:
		default:
			s.dropped++
			slog.Warn("dropping event for slow subscriber", "subscription", s.id, "dropped", s.dropped)
		}
	}
}

// Len returns the number of active subscriptions.
func (p *PubSub[E]) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.subscriptions)
}

type subscription[E any] struct {
	pubsub  *PubSub[E]
	id      int64
	cancel  context.CancelFunc
	ch      chan E
	dropped int
	once    sync.Once
}

func (s *subscription[E]) Stop() {
	s.once.Do(func() {
		s.pubsub.mutex.Lock()
		delete(s.pubsub.subscriptions, s.id)
		close(s.ch)
		s.pubsub.mutex.Unlock()
		s.cancel()
	})
}

func (s *subscription[E]) ResultChan() <-chan E {
	return s.ch
}

type closedSubscription[E any] struct{}

func (closedSubscription[E]) Stop() {}

func (closedSubscription[E]) ResultChan() <-chan E {
	ch := make(chan E)
	close(ch)
	return ch
}
