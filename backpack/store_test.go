package backpack

import "testing"

func TestPackVersionsIncrement(t *testing.T) {
	s := New()

	for i, v := range []int{1, 2, 3} {
		if err := s.Pack("counter", v, PackOptions{NodeID: "n"}); err != nil {
			t.Fatalf("pack %d: %v", i, err)
		}
	}

	value, ok, err := s.Unpack("counter", "")
	if err != nil || !ok {
		t.Fatalf("unpack: ok=%v err=%v", ok, err)
	}
	if value != 3 {
		t.Fatalf("value = %v, want 3", value)
	}

	if _, ok := s.Peek("counter"); !ok {
		t.Fatal("peek missing counter")
	}

	history := s.GetKeyHistory("counter")
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[0].NewValue != 3 || history[0].PreviousValue != 2 {
		t.Fatalf("newest commit = %+v", history[0])
	}
}

func TestSnapshotReconstruction(t *testing.T) {
	s := New()
	_ = s.Pack("counter", 1, PackOptions{NodeID: "n"})
	first := s.GetKeyHistory("counter")[0].CommitID
	_ = s.Pack("counter", 2, PackOptions{NodeID: "n"})
	_ = s.Pack("counter", 3, PackOptions{NodeID: "n"})

	snap, err := s.GetSnapshotAtCommit(first)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	value, ok, err := snap.Unpack("counter", "")
	if err != nil || !ok || value != 1 {
		t.Fatalf("snapshot counter = %v, ok=%v err=%v", value, ok, err)
	}
	if len(snap.items) != 1 {
		t.Fatalf("snapshot size = %d, want 1", len(snap.items))
	}

	live, _, _ := s.Unpack("counter", "")
	if live != 3 {
		t.Fatalf("live store mutated: %v", live)
	}
}

func TestSnapshotUnknownCommit(t *testing.T) {
	s := New()
	_, err := s.GetSnapshotAtCommit("does-not-exist")
	if _, ok := err.(*InvalidCommitError); !ok {
		t.Fatalf("err = %v, want *InvalidCommitError", err)
	}
}

func TestUnpackRequiredMissing(t *testing.T) {
	s := New()
	_, err := s.UnpackRequired("missing", "n")
	if _, ok := err.(*KeyNotFoundError); !ok {
		t.Fatalf("err = %v, want *KeyNotFoundError", err)
	}
}

func TestNamespaceWildcardQuery(t *testing.T) {
	s := New()
	_ = s.Pack("a", 1, PackOptions{NodeID: "n", Namespace: "sales.chat"})
	_ = s.Pack("b", 2, PackOptions{NodeID: "n", Namespace: "sales.search"})
	_ = s.Pack("c", 3, PackOptions{NodeID: "n", Namespace: "reporting.analytics"})

	sales := s.UnpackByNamespace("sales.*", "")
	if len(sales) != 2 || sales["a"] != 1 || sales["b"] != 2 {
		t.Fatalf("sales.* = %v", sales)
	}

	chat := s.UnpackByNamespace("*.chat", "")
	if len(chat) != 1 || chat["a"] != 1 {
		t.Fatalf("*.chat = %v", chat)
	}

	namespaces := s.GetNamespaces()
	want := []string{"reporting.analytics", "sales.chat", "sales.search"}
	if len(namespaces) != len(want) {
		t.Fatalf("namespaces = %v", namespaces)
	}
	for i := range want {
		if namespaces[i] != want[i] {
			t.Fatalf("namespaces = %v, want %v", namespaces, want)
		}
	}
}

func TestPermissionGatedNamespaceQuery(t *testing.T) {
	s := New(WithAccessControl(true))
	s.RegisterPermissions("R", PermissionEntry{NamespaceRead: []string{"public.*"}})

	_ = s.Pack("p1", "a", PackOptions{NodeID: "writer", Namespace: "public.info"})
	_ = s.Pack("p2", "b", PackOptions{NodeID: "writer", Namespace: "private.secrets"})

	private := s.UnpackByNamespace("private.*", "R")
	if len(private) != 0 {
		t.Fatalf("private.* = %v, want empty", private)
	}

	public := s.UnpackByNamespace("public.*", "R")
	if len(public) != 1 || public["p1"] != "a" {
		t.Fatalf("public.* = %v", public)
	}
}

func TestDenyOverridesRead(t *testing.T) {
	s := New(WithAccessControl(true), WithStrictMode(true))
	s.RegisterPermissions("R", PermissionEntry{
		Read: []string{"secret"},
		Deny: []string{"secret"},
	})
	_ = s.Pack("secret", "value", PackOptions{NodeID: "writer"})

	_, _, err := s.Unpack("secret", "R")
	if _, ok := err.(*AccessDeniedError); !ok {
		t.Fatalf("err = %v, want *AccessDeniedError", err)
	}
}

func TestStrictModeVsSilentDrop(t *testing.T) {
	strict := New(WithAccessControl(true), WithStrictMode(true))
	strict.RegisterPermissions("n", PermissionEntry{Write: []string{"allowed"}})
	if err := strict.Pack("blocked", 1, PackOptions{NodeID: "n"}); err == nil {
		t.Fatal("expected AccessDeniedError in strict mode")
	}

	lenient := New(WithAccessControl(true), WithStrictMode(false))
	lenient.RegisterPermissions("n", PermissionEntry{Write: []string{"allowed"}})
	if err := lenient.Pack("blocked", 1, PackOptions{NodeID: "n"}); err != nil {
		t.Fatalf("expected silent drop, got %v", err)
	}
	if _, ok := lenient.Peek("blocked"); ok {
		t.Fatal("blocked key should not have been written")
	}
}

func TestDeepCloneGuarantee(t *testing.T) {
	s := New()
	_ = s.Pack("obj", map[string]any{"count": float64(1)}, PackOptions{NodeID: "n", Namespace: "ns.x"})

	items := s.UnpackByNamespace("ns.*", "")
	clone := items["obj"].(map[string]any)
	clone["count"] = float64(999)

	value, _, _ := s.Unpack("obj", "")
	live := value.(map[string]any)
	if live["count"] != float64(1) {
		t.Fatalf("mutation leaked into store: %v", live)
	}
}

func TestDiff(t *testing.T) {
	a := New()
	_ = a.Pack("x", 1, PackOptions{NodeID: "n"})
	_ = a.Pack("y", 2, PackOptions{NodeID: "n"})

	b := New()
	_ = b.Pack("x", 1, PackOptions{NodeID: "n"})
	_ = b.Pack("y", 99, PackOptions{NodeID: "n"})
	_ = b.Pack("z", 3, PackOptions{NodeID: "n"})

	d := Diff(a, b)
	if len(d.Added) != 1 || d.Added[0] != "z" {
		t.Fatalf("added = %v", d.Added)
	}
	if len(d.Removed) != 0 {
		t.Fatalf("removed = %v", d.Removed)
	}
	if len(d.Modified) != 1 || d.Modified[0].Key != "y" {
		t.Fatalf("modified = %v", d.Modified)
	}
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	s := New()
	_ = s.Pack("x", map[string]any{"a": float64(1)}, PackOptions{NodeID: "n", Namespace: "ns"})
	s.RegisterPermissions("n", PermissionEntry{Read: []string{"x"}})

	data, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	value, ok, err := restored.Unpack("x", "")
	if err != nil || !ok {
		t.Fatalf("restored unpack: ok=%v err=%v", ok, err)
	}
	m := value.(map[string]any)
	if m["a"] != float64(1) {
		t.Fatalf("restored value = %v", value)
	}
	if len(restored.GetKeyHistory("x")) != 1 {
		t.Fatal("restored history missing")
	}
	if len(restored.permissions["n"].Read) != 1 {
		t.Fatal("restored permissions missing")
	}
}

func TestHistoryBoundEvictsOldest(t *testing.T) {
	s := New(WithMaxHistory(2))
	_ = s.Pack("a", 1, PackOptions{NodeID: "n"})
	first := s.GetHistory()[0].CommitID
	_ = s.Pack("b", 2, PackOptions{NodeID: "n"})
	_ = s.Pack("c", 3, PackOptions{NodeID: "n"})

	if len(s.GetHistory()) != 2 {
		t.Fatalf("history length = %d, want 2", len(s.GetHistory()))
	}
	if _, err := s.GetSnapshotAtCommit(first); err == nil {
		t.Fatal("expected InvalidCommitError for evicted commit")
	}
}
