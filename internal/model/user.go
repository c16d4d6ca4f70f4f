package model

import "time"

// User is a registered badge holder. Scans resolve against Barcode; manual
// check-ins never reference a User.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName  string    `gorm:"size:256;not null;index" json:"fullName"`
	Barcode   string    `gorm:"uniqueIndex;size:64;not null" json:"barcode"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
