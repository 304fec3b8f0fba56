package models

import (
	"time"
)

// Role is a player's side in the match.
type Role string

const (
	RoleHunter   Role = "hunter"
	RoleCriminal Role = "criminal"
)

// Valid reports whether r is one of the two playable roles.
func (r Role) Valid() bool {
	return r == RoleHunter || r == RoleCriminal
}

// Session is one player's membership in exactly one match. Token is the bearer
// credential for every subsequent call and never appears in player listings.
type Session struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MatchID   uint      `json:"match_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"size:50;not null"`
	Role      Role      `json:"role" gorm:"type:varchar(16);not null"`
	IsOwner   bool      `json:"is_owner" gorm:"not null;default:false"`
	Token     string    `json:"-" gorm:"size:36;not null;uniqueIndex"`
	Avatar    string    `json:"avatar" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Locations []Location `json:"locations,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// MatchPlayer is the lightweight projection returned by the player listing.
type MatchPlayer struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	IsOwner bool   `json:"is_owner"`
	Avatar  string `json:"avatar"`
}
