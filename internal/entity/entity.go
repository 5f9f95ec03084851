// Package entity provides identities for trackable bodies and the store
// that owns the entity values behind them.
package entity

import (
	"fmt"
	"strconv"
)

// ID identifies an entity within its kind.
type ID uint64

// Kind tags the concrete type stored under an identity. The set of kinds is
// closed; dispatch code switches over it exhaustively.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindRock
	KindBumper
)

// Kinds lists every known kind in declaration order.
var Kinds = []Kind{KindPlayer, KindRock, KindBumper}

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindRock:
		return "rock"
	case KindBumper:
		return "bumper"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind maps a kind name back to its tag.
func ParseKind(name string) (Kind, error) {
	for _, known := range Kinds {
		if known.String() == name {
			return known, nil
		}
	}
	return 0, fmt.Errorf("entity: unknown kind %q", name)
}

// UID is the global identity of a trackable body.
type UID struct {
	ID   ID
	Kind Kind
}

func (u UID) String() string {
	return fmt.Sprintf("%s:%d", u.Kind, u.ID)
}

// Less orders identities by kind then id. Contact pairs use it to normalise
// their key.
func (u UID) Less(other UID) bool {
	if u.Kind != other.Kind {
		return u.Kind < other.Kind
	}
	return u.ID < other.ID
}
