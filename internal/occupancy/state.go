package occupancy

import (
	"time"

	"room-status-backend/internal/model"
)

// State is the derived occupancy state of a room. The numeric values are
// part of the public API (display boards key their labels on them).
type State int

const (
	StateOccupied    State = 0
	StateFree        State = 1
	StateKickable    State = 2
	StateUnavailable State = 3
)

// String returns the state's wire label.
func (s State) String() string {
	switch s {
	case StateOccupied:
		return "occupied"
	case StateFree:
		return "free"
	case StateKickable:
		return "kickable"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// RoomView is the derived, non-persisted view of one room at one instant.
// Views are immutable once built; the tracker replaces whole snapshots
// rather than patching fields in place.
type RoomView struct {
	Room model.Room
	// State derived from CurrentUse at the snapshot instant.
	State State
	// TimeRemaining is nil for Free and Unavailable rooms. For timed
	// occupations it is signed: positive while Occupied, negative (overrun)
	// once Kickable.
	TimeRemaining *time.Duration
	CurrentUse    *model.Use
}

// ComputeState derives a room's occupancy state and remaining time from its
// most recent use record. Pure: it is called every tick for every tracked
// room.
func ComputeState(use *model.Use, now time.Time) (State, *time.Duration) {
	if use == nil || !use.Open() {
		return StateFree, nil
	}
	if use.MaxDuration == 0 {
		return StateUnavailable, nil
	}
	remaining := use.PlannedEnd().Sub(now)
	if remaining > 0 {
		return StateOccupied, &remaining
	}
	return StateKickable, &remaining
}
