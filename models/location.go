package models

import (
	"time"
)

// Location is one reported position of a criminal session for one iteration.
// At most one row exists per (session, iteration); a repeated report for the
// same iteration overwrites lat/lon and refreshes CreatedAt in place.
type Location struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_session_iteration"`
	Lat       float64   `json:"lat" gorm:"not null"`
	Lon       float64   `json:"lon" gorm:"not null"`
	Iteration int       `json:"iteration" gorm:"not null;uniqueIndex:idx_session_iteration"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
