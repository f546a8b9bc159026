package sched

import (
	"context"
	"errors"
	"testing"
)

func noopUnit(name string) ActionUnit {
	return ActionUnit{
		Name: name,
		Run: func(ctx context.Context, p Params) (string, error) {
			return "", nil
		},
	}
}

func TestRegistryRegisterGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopUnit("a")); err != nil {
		t.Fatalf("register: %v", err)
	}

	u, err := r.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Name != "a" {
		t.Fatalf("got unit %q", u.Name)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopUnit("a")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(noopUnit("a")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ActionUnit{Name: ""}); err == nil {
		t.Fatalf("empty name accepted")
	}
	if err := r.Register(ActionUnit{Name: "x"}); err == nil {
		t.Fatalf("nil run func accepted")
	}
}

func TestRegistryNamesOrder(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"c", "a", "b"} {
		if err := r.Register(noopUnit(n)); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "c" || names[1] != "a" || names[2] != "b" {
		t.Fatalf("names = %v", names)
	}
}
