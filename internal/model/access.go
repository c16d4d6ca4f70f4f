package model

import "time"

// AccessGrant permits one user to enter one restricted room until ExpiresAt
// (nil = no expiry). It is only consulted for rooms with IsRestricted set.
type AccessGrant struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64      `gorm:"not null;index:idx_grant_user_room" json:"userId"`
	RoomNumber string     `gorm:"size:16;not null;index:idx_grant_user_room" json:"roomNumber"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	CreatedAt  time.Time  `json:"-"`
}

// Ban denies one user entry to every room until ExpiresAt (nil = permanent).
// When several non-expired bans exist for a user, the earliest-created one
// governs.
type Ban struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;index" json:"userId"`
	Reason    *string    `gorm:"size:512" json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
}

// Active reports whether the ban is in force at the given instant.
func (b *Ban) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
