package model

import "time"

// Use represents one continuous occupation attempt of a room: entry, planned
// maximum duration and, once the occupant has left, an exit timestamp.
//
// A Use with MaxDuration == 0 is an administrative block: the room is held
// indefinitely (unavailable) until the record is closed by staff.
//
// Invariant: for a given room at most one Use has ExitTime == nil. Opening a
// new record while one is open only happens through the store's Replace
// operation, which closes the old record in the same transaction.
type Use struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomNumber string    `gorm:"size:16;not null;index" json:"roomNumber"`
	// Display name shown on the boards. Kept even when the occupant badge is
	// unknown, hence separate from UserID.
	UserFullName string     `gorm:"size:256;not null" json:"userFullName"`
	UserID       *int64     `gorm:"index" json:"userId"`
	EntryTime    time.Time  `gorm:"not null;index" json:"entryTime"`
	MaxDuration  int        `gorm:"not null" json:"maxDuration"` // minutes; 0 = no auto-expiry
	ExitTime     *time.Time `gorm:"index" json:"exitTime"`
	// Set exactly once by the tracker when the planned duration elapses while
	// the record is still open.
	KickableActivationTime *time.Time `json:"kickableActivationTime"`
	CreatedAt              time.Time  `json:"-"`
	UpdatedAt              time.Time  `json:"-"`

	// Associations
	Room Room `gorm:"foreignKey:RoomNumber;references:Number" json:"-"`
}

// Open reports whether the record still describes a current occupation.
func (u *Use) Open() bool {
	return u.ExitTime == nil
}

// PlannedEnd returns the instant the occupation is due to end. Only
// meaningful for timed records (MaxDuration > 0).
func (u *Use) PlannedEnd() time.Time {
	return u.EntryTime.Add(time.Duration(u.MaxDuration) * time.Minute)
}
