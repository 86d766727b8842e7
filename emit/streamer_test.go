package emit

import (
	"bytes"
	"sync"
	"testing"
)

func tickingClock() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestEmitDeliversToMatchingHandlersInOrder(t *testing.T) {
	s := New(withClock(tickingClock()))

	var order []string
	var mu sync.Mutex
	record := func(name string) Handler {
		return func(Event) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	s.On(nil, record("first"))
	s.On(nil, record("second"))

	s.Emit(NodeStart, nil, Context{NodeID: "n1", RunID: "r1"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestFilterByTypeAndNode(t *testing.T) {
	s := New(withClock(tickingClock()))

	var gotErrors int
	s.On(&Filter{NodeID: "n1", Types: []EventType{ErrorEvent}}, func(Event) { gotErrors++ })

	s.Emit(NodeStart, nil, Context{NodeID: "n1", RunID: "r1"})
	s.Emit(ErrorEvent, nil, Context{NodeID: "n2", RunID: "r1"})
	s.Emit(ErrorEvent, nil, Context{NodeID: "n1", RunID: "r1"})

	if gotErrors != 1 {
		t.Fatalf("gotErrors = %d, want 1", gotErrors)
	}
}

func TestFilterByNamespacePattern(t *testing.T) {
	s := New(withClock(tickingClock()))

	var matched []string
	s.On(&Filter{NamespacePattern: "sales.*"}, func(e Event) { matched = append(matched, e.Namespace) })

	s.Emit(Custom, nil, Context{Namespace: "sales.chat"})
	s.Emit(Custom, nil, Context{Namespace: "reporting.analytics"})

	if len(matched) != 1 || matched[0] != "sales.chat" {
		t.Fatalf("matched = %v", matched)
	}
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	s := New(withClock(tickingClock()))

	var secondRan bool
	s.On(nil, func(Event) { panic("boom") })
	s.On(nil, func(Event) { secondRan = true })

	s.Emit(Custom, nil, Context{})

	if !secondRan {
		t.Fatal("second handler should still run after first panics")
	}
}

func TestGetHistoryBounded(t *testing.T) {
	s := New(WithMaxHistory(2), withClock(tickingClock()))

	s.Emit(NodeStart, nil, Context{NodeID: "a"})
	s.Emit(NodeStart, nil, Context{NodeID: "b"})
	s.Emit(NodeStart, nil, Context{NodeID: "c"})

	history := s.GetHistory(nil)
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].NodeID != "b" || history[1].NodeID != "c" {
		t.Fatalf("history = %+v", history)
	}
}

func TestGetStats(t *testing.T) {
	s := New(withClock(tickingClock()))
	s.Emit(NodeStart, nil, Context{})
	s.Emit(NodeStart, nil, Context{})
	s.Emit(NodeEnd, nil, Context{})

	stats := s.GetStats()
	if stats.Total != 3 || stats.ByType[NodeStart] != 2 || stats.ByType[NodeEnd] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSubscribeReceivesMatchingEventsUntilUnsubscribed(t *testing.T) {
	s := New(withClock(tickingClock()))
	ch, unsubscribe := s.Subscribe(&Filter{Types: []EventType{ErrorEvent}})

	s.Emit(NodeStart, nil, Context{})
	s.Emit(ErrorEvent, nil, Context{NodeID: "n1"})

	select {
	case e := <-ch:
		if e.Type != ErrorEvent || e.NodeID != "n1" {
			t.Fatalf("event = %+v", e)
		}
	default:
		t.Fatal("expected buffered event on channel")
	}

	unsubscribe()
	s.Emit(ErrorEvent, nil, Context{NodeID: "n2"})
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestAsyncDispatchWaitsForAllHandlers(t *testing.T) {
	s := New(WithAsync(true), withClock(tickingClock()))

	var count int
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		s.On(nil, func(Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	s.Emit(Custom, nil, Context{})

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestLogHandlerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	s := New(withClock(tickingClock()))
	s.On(nil, LogHandler(&buf))

	s.Emit(NodeStart, map[string]any{"k": "v"}, Context{NodeID: "n1"})

	if buf.Len() == 0 {
		t.Fatal("expected log output")
	}
}
