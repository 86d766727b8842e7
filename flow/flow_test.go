package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/contract"
	"github.com/backpackflow/backpackflow-go/node"
)

type stepNode struct {
	node.Base
	action string
}

func (n *stepNode) Params() map[string]any                   { return nil }
func (n *stepNode) InputContract() contract.DataContract      { return nil }
func (n *stepNode) OutputContract() contract.DataContract     { return nil }
func (n *stepNode) Prep(context.Context, *backpack.ScopedStore) (any, error) {
	return nil, nil
}
func (n *stepNode) Exec(context.Context, any) (any, error) { return nil, nil }
func (n *stepNode) Post(context.Context, *backpack.ScopedStore, any, any) (string, error) {
	return n.action, nil
}

func stepFactory(action string) node.Factory {
	return func(id string, config any, cctx node.ConstructorContext) (node.Node, error) {
		return &stepNode{Base: node.NewBase(id, cctx.Namespace, cctx.NewSubflow), action: action}, nil
	}
}

func TestComposeNamespace(t *testing.T) {
	cases := []struct{ parent, segment, want string }{
		{"", "a", "a"},
		{"a", "b", "a.b"},
		{"a", "", "a"},
	}
	for _, c := range cases {
		if got := compose(c.parent, c.segment); got != c.want {
			t.Errorf("compose(%q,%q) = %q, want %q", c.parent, c.segment, got, c.want)
		}
	}
}

func TestAddNodeNamespaceFallsBackToID(t *testing.T) {
	f := New("root", backpack.New(), nil, nil)
	n, err := f.AddNode("alpha", "", nil, stepFactory(""))
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if n.Namespace() != "root.alpha" {
		t.Fatalf("namespace = %q, want root.alpha", n.Namespace())
	}
}

func TestRunLinearChainHaltsOnEmptyAction(t *testing.T) {
	f := New("", backpack.New(), nil, nil)
	if _, err := f.AddNode("a", "a", nil, stepFactory("go")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.AddNode("b", "b", nil, stepFactory("")); err != nil {
		t.Fatal(err)
	}
	if err := f.On("a", "go", "b"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetEntryNode("a"); err != nil {
		t.Fatal(err)
	}

	action, err := f.Run(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != "" {
		t.Fatalf("action = %q, want empty (halted at b)", action)
	}
}

func TestRunHaltsOnAbsentSuccessor(t *testing.T) {
	f := New("", backpack.New(), nil, nil)
	if _, err := f.AddNode("a", "a", nil, stepFactory("unrouted")); err != nil {
		t.Fatal(err)
	}

	action, err := f.Run(context.Background(), "a", "r1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != "unrouted" {
		t.Fatalf("action = %q, want unrouted", action)
	}
}

func TestRunNoEntryNodeConfigured(t *testing.T) {
	f := New("", backpack.New(), nil, nil)
	_, err := f.Run(context.Background(), "", "")
	if _, ok := err.(*NoEntryNodeError); !ok {
		t.Fatalf("err = %v, want *NoEntryNodeError", err)
	}
}

func TestRegisterNodeRejectsDuplicate(t *testing.T) {
	f := New("", backpack.New(), nil, nil)
	n, err := f.AddNode("a", "a", nil, stepFactory(""))
	if err != nil {
		t.Fatal(err)
	}
	err = f.RegisterNode(n)
	if _, ok := err.(*DuplicateNodeError); !ok {
		t.Fatalf("err = %v, want *DuplicateNodeError", err)
	}
}

func TestCreateSubflowSharesStore(t *testing.T) {
	store := backpack.New()
	f := New("root", store, nil, nil)
	sub := f.CreateSubflow("child")
	if sub.Namespace() != "root.child" {
		t.Fatalf("namespace = %q", sub.Namespace())
	}
	if sub.store != store {
		t.Fatal("subflow should share the parent's store")
	}
}

func TestCompositeNodeRequestsSubflowOnlyOnce(t *testing.T) {
	f := New("", backpack.New(), nil, nil)
	n, err := f.AddNode("composite", "composite", nil, stepFactory(""))
	if err != nil {
		t.Fatal(err)
	}
	base, ok := n.(*stepNode)
	if !ok {
		t.Fatal("expected *stepNode")
	}

	if _, err := base.RequestSubflow(); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := base.RequestSubflow(); !errors.Is(err, node.ErrSubflowAlreadyExists) {
		t.Fatalf("second request err = %v, want ErrSubflowAlreadyExists", err)
	}
}
