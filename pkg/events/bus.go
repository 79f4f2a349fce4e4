package events

import (
	"log"
	"sync"
)

// Handler receives events from the bus.
type Handler func(ev Event)

// Bus is a typed pub/sub dispatcher. Producers (the markup parser, the
// proxy's input path) emit events; each subscriber receives the types it
// registered for, in emission order. Unknown types reaching a bus with no
// subscriber for them are logged once per type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	global   []Handler
	unseen   map[EventType]bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		unseen:   make(map[EventType]bool),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, h)
}

// Emit delivers an event to its subscribers synchronously.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := b.handlers[ev.Type]
	globals := b.global
	b.mu.RUnlock()

	if len(subs) == 0 && len(globals) == 0 {
		b.mu.Lock()
		if !b.unseen[ev.Type] {
			b.unseen[ev.Type] = true
			log.Printf("events: no subscriber for event type %s", ev.Type)
		}
		b.mu.Unlock()
		return
	}
	for _, h := range subs {
		h(ev)
	}
	for _, h := range globals {
		h(ev)
	}
}

// Queue serializes events from multiple producer goroutines into a single
// consumer, giving the mapper its one logical sequencing point. Close the
// queue to stop the consumer.
type Queue struct {
	ch   chan Event
	once sync.Once
}

// NewQueue returns a queue with a fixed buffer.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size)}
}

// Put enqueues an event. It blocks if the consumer has fallen behind,
// applying backpressure to the stream readers.
func (q *Queue) Put(ev Event) {
	q.ch <- ev
}

// Close shuts the queue down; Run returns after draining.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.ch) })
}

// Run consumes events until the queue is closed.
func (q *Queue) Run(consume func(Event)) {
	for ev := range q.ch {
		consume(ev)
	}
}
