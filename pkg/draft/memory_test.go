package draft

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "search"); ok || err != nil {
		t.Fatalf("Get on empty store = %v, %v", ok, err)
	}

	if err := s.Set(ctx, "search", "half-typed query"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "search")
	if err != nil || !ok || v != "half-typed query" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := s.Set(ctx, "search", "replaced"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _, _ := s.Get(ctx, "search"); v != "replaced" {
		t.Errorf("Get after overwrite = %q", v)
	}

	if err := s.Clear(ctx, "search"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "search"); ok {
		t.Error("value survived Clear")
	}

	// Clearing an absent key is fine.
	if err := s.Clear(ctx, "never-set"); err != nil {
		t.Errorf("Clear absent key: %v", err)
	}
}
