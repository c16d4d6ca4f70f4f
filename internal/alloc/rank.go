package alloc

import (
	"sort"

	"room-status-backend/internal/model"
	"room-status-backend/internal/occupancy"
)

// RankOptions tunes the candidate ranking.
type RankOptions struct {
	// StrictReserved excludes rooms reserved for an instrument from the
	// candidate list entirely.
	StrictReserved bool
}

// Rank produces the prioritized candidate sequence for "where should the
// next scanned person go" within one room category: free rooms by descending
// desirability score (room number breaks ties, so the order is stable), then
// kickable rooms with the longest-overstayed occupant first. Rooms in any
// other state are never candidates.
func Rank(views []occupancy.RoomView, roomType model.RoomType, opts RankOptions) []occupancy.RoomView {
	var free, kickable []occupancy.RoomView
	for _, v := range views {
		if roomType != "" && v.Room.Type != roomType {
			continue
		}
		if opts.StrictReserved && v.Room.Reserved != nil {
			continue
		}
		switch v.State {
		case occupancy.StateFree:
			free = append(free, v)
		case occupancy.StateKickable:
			if v.CurrentUse != nil {
				kickable = append(kickable, v)
			}
		}
	}

	sort.SliceStable(free, func(i, j int) bool {
		if free[i].Room.Score != free[j].Room.Score {
			return free[i].Room.Score > free[j].Room.Score
		}
		return free[i].Room.Number < free[j].Room.Number
	})
	sort.SliceStable(kickable, func(i, j int) bool {
		return kickable[i].CurrentUse.EntryTime.Before(kickable[j].CurrentUse.EntryTime)
	})

	return append(free, kickable...)
}

// SoonFree lists occupied rooms ordered by ascending entry time: the rooms
// that will free up soonest, for the "soon available" column.
func SoonFree(views []occupancy.RoomView, roomType model.RoomType) []occupancy.RoomView {
	var occupied []occupancy.RoomView
	for _, v := range views {
		if roomType != "" && v.Room.Type != roomType {
			continue
		}
		if v.State == occupancy.StateOccupied && v.CurrentUse != nil {
			occupied = append(occupied, v)
		}
	}
	sort.SliceStable(occupied, func(i, j int) bool {
		return occupied[i].CurrentUse.EntryTime.Before(occupied[j].CurrentUse.EntryTime)
	})
	return occupied
}
