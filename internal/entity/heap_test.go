package entity

import "testing"

func TestHeapAddGetRemove(t *testing.T) {
	heap := NewHeap()
	first := heap.Add(KindPlayer, "alice")
	second := heap.Add(KindRock, 42)

	if first == second {
		t.Fatalf("expected distinct identities, got %v twice", first)
	}
	if first.Kind != KindPlayer || second.Kind != KindRock {
		t.Fatalf("unexpected kinds: %v %v", first, second)
	}

	value, ok := heap.Get(first)
	if !ok || value.(string) != "alice" {
		t.Fatalf("expected alice under %v, got %v (ok=%v)", first, value, ok)
	}

	if _, ok := heap.Get(UID{ID: first.ID, Kind: KindRock}); ok {
		t.Fatalf("lookup must match the kind tag as well as the id")
	}

	removed, ok := heap.Remove(second)
	if !ok || removed.(int) != 42 {
		t.Fatalf("unexpected removal result %v (ok=%v)", removed, ok)
	}
	if heap.Contains(second) {
		t.Fatalf("expected %v to be gone", second)
	}
	if _, ok := heap.Remove(second); ok {
		t.Fatalf("second removal should report absence")
	}
	if heap.Len() != 1 {
		t.Fatalf("expected one live entity, got %d", heap.Len())
	}
}

func TestHeapUIDsKeepsInsertionOrder(t *testing.T) {
	heap := NewHeap()
	a := heap.Add(KindRock, nil)
	b := heap.Add(KindPlayer, nil)
	c := heap.Add(KindRock, nil)
	heap.Remove(b)
	d := heap.Add(KindPlayer, nil)

	got := heap.UIDs()
	want := []UID{a, c, d}
	if len(got) != len(want) {
		t.Fatalf("expected %d uids, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
		}
	}

	got[0] = UID{}
	if heap.UIDs()[0] != a {
		t.Fatalf("UIDs must return a copy")
	}
}

func TestHeapAddRejectsUnknownKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown kind")
		}
	}()
	NewHeap().Add(Kind(99), nil)
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(kind.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", kind, err)
		}
		if parsed != kind {
			t.Fatalf("expected %v, got %v", kind, parsed)
		}
	}
	if _, err := ParseKind("dragon"); err == nil {
		t.Fatalf("expected error for unknown kind name")
	}
}
