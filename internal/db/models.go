package db

import (
	"time"

	"gorm.io/datatypes"
)

// Game mirrors one game document. The player list and game-specific
// custom fields are stored as JSON so the schema does not constrain the
// shape embedding games attach to their documents.
type Game struct {
	ID         string         `gorm:"primaryKey;size:64"`
	Name       string         `gorm:"size:128"`
	HostID     string         `gorm:"size:64;not null"`
	State      string         `gorm:"size:32;not null"`
	AccessCode string         `gorm:"size:8;index"`
	Active     bool           `gorm:"not null;default:true"`
	Modified   time.Time      `gorm:"not null"`
	Players    datatypes.JSON `gorm:"type:jsonb"`
	Custom     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

// Event is an append-only trail of game lifecycle changes.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"index;size:64;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}

// SessionRole is one durable recovery anchor: the role id a device last
// held in a game, keyed "game.{gameId}".
type SessionRole struct {
	Key       string    `gorm:"primaryKey;size:160"`
	RoleID    string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
