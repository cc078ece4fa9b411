package realtime

import (
	"sync"

	"go.uber.org/zap"

	"recruitflow/internal/metrics"
)

// Filter selects events for one subscriber. Empty Tables means every table;
// an empty Column means no row filter.
type Filter struct {
	Tables []string
	Column string
	Value  string
}

func (f Filter) match(e Event) bool {
	if len(f.Tables) > 0 {
		ok := false
		for _, t := range f.Tables {
			if t == e.Table {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Column != "" && e.Field(f.Column) != f.Value {
		return false
	}
	return true
}

type subscriber struct {
	filter Filter
	ch     chan Event
}

type handler struct {
	filter Filter
	fn     func(Event)
}

// Hub fans change events out to subscribers. Channel subscribers each get
// their own copy, and a full buffer drops the event for that subscriber only.
// Attached handlers run on the publishing goroutine and never miss an event.
type Hub struct {
	mu       sync.RWMutex
	subs     map[int]*subscriber
	handlers map[int]handler
	nextID   int
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{subs: make(map[int]*subscriber), handlers: make(map[int]handler), log: log}
}

// Attach calls fn for every matching event, in publish order. fn must not
// block for long: it holds up the feed for everyone. The returned func
// detaches it.
func (h *Hub) Attach(f Filter, fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = handler{filter: f, fn: fn}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(f Filter, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	s := &subscriber{filter: f, ch: make(chan Event, buffer)}
	h.subs[id] = s
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	var fns []func(Event)
	for _, hd := range h.handlers {
		if hd.filter.match(e) {
			fns = append(fns, hd.fn)
		}
	}
	h.deliver(e)
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// deliver must be called with mu held for reading.
func (h *Hub) deliver(e Event) {
	for _, s := range h.subs {
		if !s.filter.match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			metrics.RealtimeEventsDropped.WithLabelValues(e.Table, "subscriber_full").Inc()
			h.log.Warn("subscriber buffer full, dropping event",
				zap.String("table", e.Table), zap.String("op", string(e.Op)))
		}
	}
}

// Len counts channel subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
