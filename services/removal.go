package services

import (
	"log"

	"github.com/dedestem/opdevlucht-backend/models"
	"gorm.io/gorm"
)

// removalOutcome describes what removing a session did to the rest of the match.
type removalOutcome struct {
	MatchDeleted bool
}

// removeSession deletes a session and applies the match-wide consequences as
// one unit inside the caller's transaction: location samples go with the
// session, a match with no sessions left is deleted on the spot, and if the
// departing session owned the match the oldest remaining session is promoted.
// Both explicit leave and lag eviction go through here so the
// "exactly one owner while the match has players" invariant cannot diverge
// between the two paths.
func removeSession(tx *gorm.DB, session *models.Session) (removalOutcome, error) {
	var out removalOutcome

	if err := tx.Where("session_id = ?", session.ID).Delete(&models.Location{}).Error; err != nil {
		return out, err
	}
	if err := tx.Delete(&models.Session{}, session.ID).Error; err != nil {
		return out, err
	}

	var remaining []models.Session
	if err := tx.Where("match_id = ?", session.MatchID).
		Order("created_at ASC, id ASC").
		Find(&remaining).Error; err != nil {
		return out, err
	}

	if len(remaining) == 0 {
		if err := tx.Delete(&models.Match{}, session.MatchID).Error; err != nil {
			return out, err
		}
		out.MatchDeleted = true
		return out, nil
	}

	if session.IsOwner {
		next := remaining[0]
		if err := tx.Model(&models.Session{}).Where("id = ?", next.ID).
			Update("is_owner", true).Error; err != nil {
			return out, err
		}
		log.Printf("👑 Promoted session %d to owner of match %d", next.ID, session.MatchID)
	}

	return out, nil
}
