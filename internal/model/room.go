package model

import "time"

// RoomType classifies a room in the inventory.
type RoomType string

const (
	RoomTypeStudio      RoomType = "studio"
	RoomTypeRoom        RoomType = "room"
	RoomTypeConcertHall RoomType = "concert_hall"
)

// Room represents one bookable physical space. Rooms are created and edited
// by staff through the admin endpoints and are otherwise static: the engine
// only reads them.
type Room struct {
	Number            string   `gorm:"primaryKey;size:16" json:"number"`
	Floor             int      `json:"floor"` // 0 = ground, negative = basement
	Type              RoomType `gorm:"size:32;not null;index" json:"type"`
	Score             int      `gorm:"not null" json:"score"`
	Reserved          *string  `gorm:"size:64" json:"reserved"` // instrument tag, nil = standard
	IsRestricted      bool     `gorm:"not null" json:"isRestricted"`
	Description       string   `gorm:"size:512" json:"description"`
	HiddenDescription *string  `gorm:"size:512" json:"-"`
	Name              *string  `gorm:"size:128" json:"name"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}
