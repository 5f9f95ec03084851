package world

import (
	"fmt"

	"sulphate/internal/entity"
)

func displayOf(uid entity.UID, value any) Display {
	switch uid.Kind {
	case entity.KindPlayer:
		return mustPlayer(uid, value)
	case entity.KindRock:
		return mustRock(uid, value)
	case entity.KindBumper:
		return mustBumper(uid, value)
	default:
		panic(fmt.Sprintf("world: no display for %v", uid))
	}
}

func eyesOf(uid entity.UID, value any) Eyes {
	switch uid.Kind {
	case entity.KindPlayer:
		return mustPlayer(uid, value)
	case entity.KindRock:
		mustRock(uid, value)
		return nil
	case entity.KindBumper:
		mustBumper(uid, value)
		return nil
	default:
		panic(fmt.Sprintf("world: no eyes for %v", uid))
	}
}

func colliderOf(uid entity.UID, value any) Collider {
	switch uid.Kind {
	case entity.KindPlayer:
		return mustPlayer(uid, value)
	case entity.KindRock:
		mustRock(uid, value)
		return nil
	case entity.KindBumper:
		return mustBumper(uid, value)
	default:
		panic(fmt.Sprintf("world: no collider for %v", uid))
	}
}

// retire releases kind-specific resources once an entity has left the
// store.
func retire(uid entity.UID, value any) {
	switch uid.Kind {
	case entity.KindPlayer:
		mustPlayer(uid, value).close()
	case entity.KindRock:
		mustRock(uid, value)
	case entity.KindBumper:
		mustBumper(uid, value)
	default:
		panic(fmt.Sprintf("world: cannot retire %v", uid))
	}
}

func mustPlayer(uid entity.UID, value any) *Player {
	player, ok := value.(*Player)
	if !ok || player == nil {
		panic(fmt.Sprintf("world: %v holds %T, want *Player", uid, value))
	}
	return player
}

func mustBumper(uid entity.UID, value any) *Bumper {
	bumper, ok := value.(*Bumper)
	if !ok || bumper == nil {
		panic(fmt.Sprintf("world: %v holds %T, want *Bumper", uid, value))
	}
	return bumper
}

func mustRock(uid entity.UID, value any) *Rock {
	rock, ok := value.(*Rock)
	if !ok || rock == nil {
		panic(fmt.Sprintf("world: %v holds %T, want *Rock", uid, value))
	}
	return rock
}
