package events

import "sync"

// Handler receives a broadcast Event. Handlers must not block; the
// publisher calls each handler synchronously in Publish's goroutine.
type Handler func(Event)

// Publisher broadcasts events to every subscribed Handler. Grounded on
// the teacher's MessageBus.Subscribe/Broadcast: a map of subscriber ID
// to handler, guarded by an RWMutex, with publish-time panics recovered
// so one misbehaving subscriber can't take down the caller.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[string]Handler
	onError     func(subscriberID string, recovered any)
}

// New returns an empty Publisher. onError, if non-nil, is invoked when a
// subscriber handler panics; pass nil to swallow silently.
func New(onError func(subscriberID string, recovered any)) *Publisher {
	return &Publisher{
		subscribers: make(map[string]Handler),
		onError:     onError,
	}
}

// Subscribe registers a handler under id, replacing any existing
// handler registered under the same id.
func (p *Publisher) Subscribe(id string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[id] = h
}

// Unsubscribe removes a handler.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, id)
}

// Publish broadcasts ev to every subscriber. Fire-and-forget per spec
// §4.4: publish never returns an error and never blocks the caller
// beyond the handlers' own execution time. A panicking handler is
// recovered and reported via onError rather than propagated.
func (p *Publisher) Publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, h := range p.subscribers {
		p.safeInvoke(id, h, ev)
	}
}

func (p *Publisher) safeInvoke(id string, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil && p.onError != nil {
			p.onError(id, r)
		}
	}()
	h(ev)
}
