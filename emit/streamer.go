package emit

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/backpackflow/backpackflow-go/telemetry"
)

const defaultMaxHistory = 1000

type registration struct {
	filter  *Filter
	handler Handler
}

type subscription struct {
	filter *Filter
	ch     chan Event
}

// Stats summarizes everything a Streamer has emitted since construction.
type Stats struct {
	Total  int
	ByType map[EventType]int
}

// Streamer is the run's event bus: nodes and the orchestrator publish
// lifecycle events to it, and handlers (loggers, UIs, tracers) subscribe
// with an optional Filter. It keeps a bounded, newest-appended history so
// a subscriber that attaches mid-run can still call GetHistory to catch
// up.
//
// A zero-value Streamer is not usable; construct with New.
type Streamer struct {
	mu           sync.Mutex
	handlers     []registration
	history      []Event
	maxHistory   int
	async        bool
	metrics      *telemetry.Metrics
	subscribers  []subscription
	nowTimestamp func() int64
}

// Option configures a Streamer at construction time.
type Option func(*Streamer)

// WithMaxHistory bounds the number of retained events; the oldest events
// are evicted first once the bound is reached. The default is 1000.
func WithMaxHistory(n int) Option {
	return func(s *Streamer) { s.maxHistory = n }
}

// WithAsync switches handler dispatch to concurrent delivery: all
// matching handlers for one Emit call run in their own goroutine via
// errgroup, and Emit still blocks until every one of them returns. This
// preserves the ordering guarantee that handlers registered before an
// Emit observe that event before any later Emit is processed, while
// letting slow handlers overlap with each other instead of serializing.
func WithAsync(async bool) Option {
	return func(s *Streamer) { s.async = async }
}

// WithMetrics attaches optional Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Streamer) { s.metrics = m }
}

// withClock overrides the timestamp source; used by tests that need
// deterministic Event.Timestamp values.
func withClock(now func() int64) Option {
	return func(s *Streamer) { s.nowTimestamp = now }
}

// New constructs a Streamer with the given options applied.
func New(opts ...Option) *Streamer {
	s := &Streamer{maxHistory: defaultMaxHistory}
	for _, opt := range opts {
		opt(s)
	}
	if s.nowTimestamp == nil {
		s.nowTimestamp = defaultClock
	}
	return s
}

// On registers handler to receive every future event matching filter.
// A nil filter matches every event. Registration order is preserved and
// is the delivery order in sync mode.
func (s *Streamer) On(filter *Filter, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, registration{filter: filter, handler: handler})
}

// Emit builds and publishes an event, appending it to history and
// dispatching it to every matching handler and subscriber channel. It
// returns the constructed Event, primarily for tests.
func (s *Streamer) Emit(eventType EventType, payload map[string]any, ctx Context) Event {
	event := Event{
		ID:         uuid.NewString(),
		Timestamp:  s.nowTimestamp(),
		SourceNode: ctx.NodeName,
		NodeID:     ctx.NodeID,
		Namespace:  ctx.Namespace,
		RunID:      ctx.RunID,
		Type:       eventType,
		Payload:    payload,
	}

	s.mu.Lock()
	s.history = append(s.history, event)
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	handlers := make([]registration, len(s.handlers))
	copy(handlers, s.handlers)
	subscribers := make([]subscription, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	s.metrics.RecordEvent(string(eventType))

	matching := make([]Handler, 0, len(handlers))
	for _, reg := range handlers {
		if reg.filter.matches(event) {
			matching = append(matching, reg.handler)
		}
	}
	s.dispatch(event, matching)

	for _, sub := range subscribers {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Slow subscriber: drop rather than block the run.
		}
	}

	return event
}

func (s *Streamer) dispatch(event Event, handlers []Handler) {
	if !s.async {
		for _, h := range handlers {
			invokeSafely(h, event)
		}
		return
	}

	var g errgroup.Group
	for _, h := range handlers {
		h := h
		g.Go(func() error {
			invokeSafely(h, event)
			return nil
		})
	}
	_ = g.Wait()
}

func invokeSafely(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("emit: handler panicked on event %s (%s): %v", event.ID, event.Type, r)
		}
	}()
	h(event)
}

// GetHistory returns the retained events matching filter, oldest first.
// A nil filter returns the full retained history.
func (s *Streamer) GetHistory(filter *Filter) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter == nil {
		out := make([]Event, len(s.history))
		copy(out, s.history)
		return out
	}
	var out []Event
	for _, e := range s.history {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// GetStats summarizes the retained history by event type.
func (s *Streamer) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ByType: make(map[EventType]int)}
	for _, e := range s.history {
		stats.Total++
		stats.ByType[e.Type]++
	}
	return stats
}

// Subscribe returns a channel that receives every future event matching
// filter, and an unsubscribe function that must be called once the
// caller is done (typically via defer). The channel is buffered and
// drops events rather than blocking Emit if the subscriber falls behind.
func (s *Streamer) Subscribe(filter *Filter) (<-chan Event, func()) {
	sub := subscription{filter: filter, ch: make(chan Event, 64)}

	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subscribers {
			if c.ch == sub.ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(c.ch)
				return
			}
		}
	}
	return sub.ch, unsubscribe
}

func defaultClock() int64 {
	return time.Now().UnixMilli()
}
