package space

import (
	"sort"

	"sulphate/internal/entity"
)

// Pair is an unordered pair of identities, stored with the lesser first.
type Pair struct {
	A entity.UID
	B entity.UID
}

// PairOf normalises two identities into a Pair.
func PairOf(a, b entity.UID) Pair {
	if b.Less(a) {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Other returns the member of the pair that is not uid.
func (p Pair) Other(uid entity.UID) entity.UID {
	if p.A == uid {
		return p.B
	}
	return p.A
}

// ContactTable is the set of pairs currently judged to be touching.
type ContactTable struct {
	pairs map[Pair]struct{}
}

// NewContactTable constructs an empty table.
func NewContactTable() *ContactTable {
	return &ContactTable{pairs: make(map[Pair]struct{})}
}

// Has reports whether a and b are in contact.
func (c *ContactTable) Has(a, b entity.UID) bool {
	if c == nil {
		return false
	}
	_, ok := c.pairs[PairOf(a, b)]
	return ok
}

// Add records contact, reporting whether it is new.
func (c *ContactTable) Add(a, b entity.UID) bool {
	key := PairOf(a, b)
	if _, ok := c.pairs[key]; ok {
		return false
	}
	c.pairs[key] = struct{}{}
	return true
}

// Remove forgets contact, reporting whether it existed.
func (c *ContactTable) Remove(a, b entity.UID) bool {
	key := PairOf(a, b)
	if _, ok := c.pairs[key]; !ok {
		return false
	}
	delete(c.pairs, key)
	return true
}

// With lists every identity in contact with uid, in identity order.
func (c *ContactTable) With(uid entity.UID) []entity.UID {
	if c == nil {
		return nil
	}
	var out []entity.UID
	for key := range c.pairs {
		if key.A == uid || key.B == uid {
			out = append(out, key.Other(uid))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Len reports the number of pairs in contact.
func (c *ContactTable) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pairs)
}

// Pairs lists every pair in identity order.
func (c *ContactTable) Pairs() []Pair {
	if c == nil {
		return nil
	}
	out := make([]Pair, 0, len(c.pairs))
	for key := range c.pairs {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A.Less(out[j].A)
		}
		return out[i].B.Less(out[j].B)
	})
	return out
}
