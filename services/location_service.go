package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/dedestem/opdevlucht-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LocationService struct {
	DB *gorm.DB

	// LagThreshold is how many iterations behind the global counter a
	// criminal may fall before being evicted. At the default of 2, a session
	// whose newest sample is for iteration k is removed once the counter
	// passes k+1.
	LagThreshold int
}

func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{DB: db, LagThreshold: 2}
}

// CriminalLocation is one entry in the hunter-facing location map.
type CriminalLocation struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Iteration int     `json:"iteration"`
}

type sendLocationRequest struct {
	Token string   `json:"token"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

// SendLocation ingests one criminal position report. The whole sequence —
// resolve session, lag check, sample write, advancement check — is one
// transaction, so two concurrent reports cannot double-advance the counter
// and a failed request leaves no partial state behind.
func (s *LocationService) SendLocation(c *fiber.Ctx) error {
	var req sendLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	token := strings.TrimSpace(req.Token)
	if token == "" || req.Lat == nil || req.Lon == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	var (
		cur          int
		allUploaded  bool
		evicted      bool
		matchDeleted bool
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Only criminals report; a hunter's token resolves to nothing here.
		var session models.Session
		if err := tx.Where("token = ? AND role = ?", token, models.RoleCriminal).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errSessionNotFound
			}
			return err
		}

		// Lock the match row: the advancement check below reads the sample
		// set and then moves the counter, and two concurrent reports must not
		// both do so for the same round.
		var match models.Match
		if err := lockForUpdate(tx).First(&match, session.MatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errMatchNotFound
			}
			return err
		}
		cur = match.CurrentIteration

		var last models.Location
		err := tx.Where("session_id = ?", session.ID).
			Order("created_at DESC, id DESC").
			First(&last).Error
		hasLast := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// A criminal this far behind would stall the match forever, since the
		// counter only advances once every criminal has reported. Remove the
		// session (same cascade and succession rules as an explicit leave)
		// and commit; no sample has been written at this point.
		if hasLast && last.Iteration < cur-(s.LagThreshold-1) {
			log.Printf("⛔ Evicting criminal session %d: %d or more iterations behind", session.ID, s.LagThreshold)
			out, err := removeSession(tx, &session)
			if err != nil {
				return err
			}
			evicted = true
			matchDeleted = out.MatchDeleted
			return nil
		}

		switch {
		case !hasLast || last.Iteration < cur:
			if err := tx.Create(&models.Location{
				SessionID: session.ID,
				Lat:       *req.Lat,
				Lon:       *req.Lon,
				Iteration: cur,
			}).Error; err != nil {
				return err
			}
		case last.Iteration == cur:
			// Resubmission for the same round overwrites in place.
			if err := tx.Model(&models.Location{}).
				Where("session_id = ? AND iteration = ?", session.ID, cur).
				Updates(map[string]any{
					"lat":        *req.Lat,
					"lon":        *req.Lon,
					"created_at": time.Now(),
				}).Error; err != nil {
				return err
			}
		default:
			// last > cur: the client thinks it is ahead of the match.
			return errInvalidIteration
		}

		// Advancement is a derived consequence of the write: whichever report
		// completes the set moves the counter, and re-checking is harmless.
		reported := tx.Model(&models.Location{}).
			Select("locations.session_id").
			Joins("JOIN sessions ON sessions.id = locations.session_id").
			Where("sessions.match_id = ? AND locations.iteration = ?", session.MatchID, cur)
		var waiting int64
		if err := tx.Model(&models.Session{}).
			Where("match_id = ? AND role = ?", session.MatchID, models.RoleCriminal).
			Where("id NOT IN (?)", reported).
			Count(&waiting).Error; err != nil {
			return err
		}
		if waiting == 0 {
			allUploaded = true
			return tx.Model(&models.Match{}).
				Where("id = ?", session.MatchID).
				Update("current_iteration", cur+1).Error
		}
		return nil
	})
	switch {
	case errors.Is(err, errSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "criminal session not found"})
	case errors.Is(err, errMatchNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
	case errors.Is(err, errInvalidIteration):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid iteration"})
	case err != nil:
		log.Printf("send-location failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	if evicted {
		resp := fiber.Map{"error": "criminal too far behind in iterations"}
		if matchDeleted {
			resp["info"] = "match deleted because no players left"
		}
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"currentIteration": cur,
		"allUploaded":      allUploaded,
	})
}

// GetCriminalsLocations returns, for a hunter, each criminal's newest sample.
// A criminal that has not reported for the newest round yet shows up with its
// previous position rather than being omitted.
func (s *LocationService) GetCriminalsLocations(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid token"})
	}

	var hunter models.Session
	if err := s.DB.Where("token = ? AND role = ?", token, models.RoleHunter).First(&hunter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "hunter session not found"})
		}
		log.Printf("get-criminals-locations failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	var match models.Match
	if err := s.DB.First(&match, hunter.MatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("get-criminals-locations failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	var criminals []models.Session
	if err := s.DB.Where("match_id = ? AND role = ?", hunter.MatchID, models.RoleCriminal).
		Find(&criminals).Error; err != nil {
		log.Printf("get-criminals-locations failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	locations := map[string]CriminalLocation{}
	for _, criminal := range criminals {
		var loc models.Location
		err := s.DB.Where("session_id = ?", criminal.ID).
			Order("created_at DESC, id DESC").
			First(&loc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			log.Printf("get-criminals-locations failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
		}
		locations[criminal.Name] = CriminalLocation{
			Lat:       loc.Lat,
			Lon:       loc.Lon,
			Iteration: loc.Iteration,
		}
	}

	return c.JSON(fiber.Map{
		"NewestIteration": match.CurrentIteration,
		"locations":       locations,
	})
}
