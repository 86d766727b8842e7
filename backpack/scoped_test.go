package backpack

import (
	"testing"

	"github.com/backpackflow/backpackflow-go/emit"
)

func TestScopedStorePackEmitsBackpackPack(t *testing.T) {
	streamer := emit.New()
	var got []emit.Event
	streamer.On(nil, func(e emit.Event) { got = append(got, e) })

	store := New()
	scoped := NewScopedStore(store, "n1", "Node One", "demo", "run-1", streamer)

	if err := scoped.Pack("greeting", "hi", PackOptions{}); err != nil {
		t.Fatalf("pack: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("events = %v, want 1 BACKPACK_PACK event", got)
	}
	ev := got[0]
	if ev.Type != emit.BackpackPack {
		t.Fatalf("event type = %v, want %v", ev.Type, emit.BackpackPack)
	}
	if ev.NodeID != "n1" || ev.RunID != "run-1" {
		t.Fatalf("event context = %+v", ev)
	}
	if ev.Payload["key"] != "greeting" {
		t.Fatalf("payload key = %v, want greeting", ev.Payload["key"])
	}
}

func TestScopedStoreUnpackEmitsBackpackUnpackOnlyWhenEnabled(t *testing.T) {
	streamer := emit.New()
	var got []emit.Event
	streamer.On(nil, func(e emit.Event) { got = append(got, e) })

	store := New()
	_ = store.Pack("greeting", "hi", PackOptions{NodeID: "writer"})

	quiet := NewScopedStore(store, "reader", "Reader", "demo", "run-1", streamer)
	if _, _, err := quiet.Unpack("greeting"); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("events = %v, want none (EmitReads disabled)", got)
	}

	loud := NewScopedStore(New(WithEmitReads(true)), "reader", "Reader", "demo", "run-2", streamer)
	_ = loud.store.Pack("greeting", "hi", PackOptions{NodeID: "writer"})
	got = nil
	if _, _, err := loud.Unpack("greeting"); err != nil {
		t.Fatalf("unpack: %v", err)
	}

	var sawUnpack bool
	for _, ev := range got {
		if ev.Type == emit.BackpackUnpack {
			sawUnpack = true
			if ev.Payload["key"] != "greeting" || ev.Payload["found"] != true {
				t.Fatalf("unpack payload = %+v", ev.Payload)
			}
		}
	}
	if !sawUnpack {
		t.Fatalf("events = %v, want a BACKPACK_UNPACK event", got)
	}
}

func TestScopedStoreNilStreamerIsSafe(t *testing.T) {
	scoped := NewScopedStore(New(WithEmitReads(true)), "n", "n", "", "r", nil)
	if err := scoped.Pack("k", 1, PackOptions{}); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if _, _, err := scoped.Unpack("k"); err != nil {
		t.Fatalf("unpack: %v", err)
	}
}
