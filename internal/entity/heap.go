package entity

// Heap owns entity values keyed by identity. It is a heap in the memory
// sense, not the queue sense. Heap is not safe for concurrent use; it lives
// on the simulation goroutine.
type Heap struct {
	content map[UID]any
	order   []UID
	nextID  ID
}

// NewHeap constructs an empty store.
func NewHeap() *Heap {
	return &Heap{content: make(map[UID]any)}
}

// Add stores value under a fresh identity of the given kind.
func (h *Heap) Add(kind Kind, value any) UID {
	if !kind.Valid() {
		panic("entity: add with unknown kind " + kind.String())
	}
	for {
		h.nextID++
		uid := UID{ID: h.nextID, Kind: kind}
		if _, exists := h.content[uid]; exists {
			continue
		}
		h.content[uid] = value
		h.order = append(h.order, uid)
		return uid
	}
}

// Get returns the value stored under uid.
func (h *Heap) Get(uid UID) (any, bool) {
	if h == nil {
		return nil, false
	}
	value, ok := h.content[uid]
	return value, ok
}

// Contains reports whether uid is live.
func (h *Heap) Contains(uid UID) bool {
	_, ok := h.Get(uid)
	return ok
}

// Remove deletes and returns the value stored under uid.
func (h *Heap) Remove(uid UID) (any, bool) {
	if h == nil {
		return nil, false
	}
	value, ok := h.content[uid]
	if !ok {
		return nil, false
	}
	delete(h.content, uid)
	for i, candidate := range h.order {
		if candidate == uid {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return value, true
}

// UIDs returns the live identities in insertion order. The slice is a copy
// so callers may mutate the heap while iterating it.
func (h *Heap) UIDs() []UID {
	if h == nil || len(h.order) == 0 {
		return nil
	}
	out := make([]UID, len(h.order))
	copy(out, h.order)
	return out
}

// Len reports the number of live entities.
func (h *Heap) Len() int {
	if h == nil {
		return 0
	}
	return len(h.content)
}
