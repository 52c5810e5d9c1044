package models

import (
	"time"
)

// User backs the default owner namespace.
type User struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
