package handle

import "testing"

func TestAllocResolveRelease(t *testing.T) {
	r := NewRegistry(KindChip)
	h := r.Alloc("payload", "", "alice")

	if h.Kind() != KindChip {
		t.Fatalf("expected KindChip, got %v", h.Kind())
	}
	got, err := r.Resolve(h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.(string) != "payload" {
		t.Fatalf("expected 'payload', got %v", got)
	}

	if err := r.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := r.Resolve(h); err == nil {
		t.Fatal("expected error resolving a released handle")
	}
}

func TestStaleGenerationRejected(t *testing.T) {
	r := NewRegistry(KindFile)
	h1 := r.Alloc("one", "", "alice")
	r.Release(h1)
	h2 := r.Alloc("two", "", "bob")

	if h1.Index() != h2.Index() {
		t.Fatalf("expected slot reuse at the same index, got %d and %d", h1.Index(), h2.Index())
	}
	if h1.Generation() == h2.Generation() {
		t.Fatalf("expected generation bump on reuse, both were %d", h1.Generation())
	}
	if _, err := r.Resolve(h1); err == nil {
		t.Fatal("expected stale handle h1 to be rejected after reuse")
	}
	got, err := r.Resolve(h2)
	if err != nil {
		t.Fatalf("resolve h2: %v", err)
	}
	if got.(string) != "two" {
		t.Fatalf("expected 'two', got %v", got)
	}
}

func TestWrongKindRejected(t *testing.T) {
	r := NewRegistry(KindSPI)
	h := r.Alloc("x", "", "alice")
	other := NewRegistry(KindI2C)
	if _, err := other.Resolve(h); err == nil {
		t.Fatal("expected a handle resolved against the wrong registry kind to fail")
	}
}

func TestOwnedBy(t *testing.T) {
	r := NewRegistry(KindNotify)
	a := r.Alloc("a", "shared", "alice")
	r.Alloc("b", "", "bob")

	owned := r.OwnedBy("alice", "")
	if len(owned) != 1 || owned[0] != a {
		t.Fatalf("expected only alice's handle, got %v", owned)
	}

	sharedOwned := r.OwnedBy("nobody", "shared")
	if len(sharedOwned) != 1 || sharedOwned[0] != a {
		t.Fatalf("expected share-id lookup to find a's handle, got %v", sharedOwned)
	}
}
