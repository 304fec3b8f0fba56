package models

import (
	"time"
)

// MatchStatus is the lifecycle state of a match. The only legal flow is
// lobby → starting → started; anything else is rejected by CanAdvanceTo.
type MatchStatus string

const (
	StatusLobby    MatchStatus = "lobby"
	StatusStarting MatchStatus = "starting"
	StatusStarted  MatchStatus = "started"
)

// CanAdvanceTo reports whether next is a legal transition from s.
func (s MatchStatus) CanAdvanceTo(next MatchStatus) bool {
	switch s {
	case StatusLobby:
		return next == StatusStarting
	case StatusStarting:
		return next == StatusStarted
	default:
		return false
	}
}

// Match is one bounded-duration game instance. CurrentIteration is the global
// lockstep counter: it advances only when every live criminal session has a
// location sample for it.
type Match struct {
	ID               uint        `json:"id" gorm:"primaryKey"`
	Joincode         string      `json:"joincode" gorm:"size:10;not null;uniqueIndex"`
	MaxPlayers       int         `json:"max_players" gorm:"not null"`
	LocationInterval int         `json:"location_interval" gorm:"not null"` // seconds between reports
	MatchDuration    int         `json:"match_duration" gorm:"not null"`    // minutes until expiry
	Status           MatchStatus `json:"status" gorm:"type:varchar(16);not null;default:'lobby'"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CurrentIteration int         `json:"current_iteration" gorm:"not null;default:0"`
	CreatedAt        time.Time   `json:"created_at" gorm:"autoCreateTime"`

	Sessions []Session `json:"sessions,omitempty" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}
