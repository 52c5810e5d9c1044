package models

import "time"

// Session groups the grants of one owner to one client.
// There is at most one record per (OwnerModel, OwnerID, ClientID).
type Session struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	OwnerModel string `gorm:"not null;size:64;uniqueIndex:idx_session_owner_client"`
	OwnerID    string `gorm:"not null;uniqueIndex:idx_session_owner_client"`
	ClientID   string `gorm:"not null;uniqueIndex:idx_session_owner_client"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Session) TableName() string {
	return "oauth_sessions"
}
