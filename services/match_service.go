package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/dedestem/opdevlucht-backend/models"
	"github.com/dedestem/opdevlucht-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MatchService struct {
	DB *gorm.DB

	// Policy knobs; defaults match the reference deployment and can be
	// overridden from the environment at startup.
	StartCountdown time.Duration
	ExpiryGrace    time.Duration
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{
		DB:             db,
		StartCountdown: 25 * time.Second,
		ExpiryGrace:    30 * time.Minute,
	}
}

// maxJoincodeAttempts bounds the draw-and-check loop. The code space is huge
// compared to the number of live matches, so hitting this means something is
// badly wrong with the store, not bad luck.
const maxJoincodeAttempts = 100

type createMatchRequest struct {
	MaxPlayers       int    `json:"maxPlayers"`
	LocationInterval int    `json:"locationInterval"`
	MatchDuration    int    `json:"matchDuration"`
	Name             string `json:"name"`
}

// CreateMatch creates a lobby match plus its creator's session (owner, hunter)
// in one transaction, so a match can never exist without at least one session.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	var req createMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}

	name := strings.TrimSpace(req.Name)
	if req.MaxPlayers <= 0 || req.LocationInterval <= 0 || req.MatchDuration <= 0 || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}

	token := utils.GenerateToken()
	avatar := utils.GeneratePlayerAvatar(name)

	var match models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		joincode, err := uniqueJoincode(tx)
		if err != nil {
			return err
		}

		match = models.Match{
			Joincode:         joincode,
			MaxPlayers:       req.MaxPlayers,
			LocationInterval: req.LocationInterval,
			MatchDuration:    req.MatchDuration,
			Status:           models.StatusLobby,
		}
		if err := tx.Create(&match).Error; err != nil {
			return err
		}

		owner := models.Session{
			MatchID: match.ID,
			Name:    name,
			Role:    models.RoleHunter,
			IsOwner: true,
			Token:   token,
			Avatar:  avatar,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		log.Printf("create-match failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	return c.JSON(fiber.Map{
		"id":       match.ID,
		"joincode": match.Joincode,
		"token":    token,
		"role":     models.RoleHunter,
		"avatar":   avatar,
	})
}

// uniqueJoincode draws random codes until one is free among live matches.
func uniqueJoincode(tx *gorm.DB) (string, error) {
	for i := 0; i < maxJoincodeAttempts; i++ {
		code := utils.GenerateJoincode()
		var taken int64
		if err := tx.Model(&models.Match{}).Where("joincode = ?", code).Count(&taken).Error; err != nil {
			return "", err
		}
		if taken == 0 {
			return code, nil
		}
	}
	return "", errCodesExhausted
}

type startMatchRequest struct {
	MatchID uint   `json:"matchId"`
	Token   string `json:"token"`
}

// StartMatch moves a lobby match to "starting" and schedules the flip to
// "started" after the countdown. The response goes out immediately; the
// deferred flip is fire-and-forget and tolerates the match disappearing.
func (s *MatchService) StartMatch(c *fiber.Ctx) error {
	var req startMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}
	if req.MatchID == 0 || strings.TrimSpace(req.Token) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var owner models.Session
		if err := tx.Where("token = ? AND match_id = ? AND is_owner = ?", strings.TrimSpace(req.Token), req.MatchID, true).
			First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotOwner
			}
			return err
		}

		// Lock the match row so two racing starts cannot both observe lobby.
		var match models.Match
		if err := lockForUpdate(tx).First(&match, req.MatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errMatchNotFound
			}
			return err
		}
		if !match.Status.CanAdvanceTo(models.StatusStarting) {
			return errAlreadyStarted
		}

		var hunters, criminals int64
		if err := tx.Model(&models.Session{}).
			Where("match_id = ? AND role = ?", match.ID, models.RoleHunter).
			Count(&hunters).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Session{}).
			Where("match_id = ? AND role = ?", match.ID, models.RoleCriminal).
			Count(&criminals).Error; err != nil {
			return err
		}
		if hunters == 0 || criminals == 0 {
			return errMissingRoles
		}

		startsAt := time.Now().Add(s.StartCountdown)
		return tx.Model(&match).Updates(map[string]any{
			"status":     models.StatusStarting,
			"started_at": startsAt,
		}).Error
	})
	switch {
	case errors.Is(err, errNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized"})
	case errors.Is(err, errMatchNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
	case errors.Is(err, errMissingRoles), errors.Is(err, errAlreadyStarted):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("start-match failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	log.Printf("🏁 Starting match %d (started in %s)", req.MatchID, s.StartCountdown)
	time.AfterFunc(s.StartCountdown, func() { s.finishStart(req.MatchID) })

	return c.JSON(fiber.Map{"status": "ok"})
}

// finishStart flips starting→started once the countdown elapses. The status
// filter is the enforcement point for this transition: only a row still in
// "starting" is touched, so the flip is a no-op when the match was deleted
// (everyone left) in the meantime, and a match can never reach "started" by
// any other path.
func (s *MatchService) finishStart(matchID uint) {
	res := s.DB.Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, models.StatusStarting).
		Update("status", models.StatusStarted)
	if res.Error != nil {
		log.Printf("failed to start match %d: %v", matchID, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("🏁 Started match %d", matchID)
	}
}

// GetMatchStatus returns the match row for a joincode plus the server clock,
// so clients can render the start countdown without trusting their own clock.
func (s *MatchService) GetMatchStatus(c *fiber.Ctx) error {
	joincode := normalizeJoincode(c.Params("joincode"))
	if joincode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "joincode required"})
	}

	var match models.Match
	if err := s.DB.Where("joincode = ?", joincode).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("match-status failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	return c.JSON(fiber.Map{
		"match": match,
		"now":   time.Now().UTC().Format(time.RFC3339),
	})
}

// DeleteExpiredMatches removes every match older than its own duration plus
// the grace window, cascading sessions and locations in the same transaction.
// Safe to run concurrently with live traffic and a no-op when nothing expired.
func (s *MatchService) DeleteExpiredMatches() (int, error) {
	var count int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var matches []models.Match
		if err := tx.Find(&matches).Error; err != nil {
			return err
		}

		now := time.Now()
		var expired []uint
		for _, m := range matches {
			maxAge := time.Duration(m.MatchDuration)*time.Minute + s.ExpiryGrace
			if now.Sub(m.CreatedAt) > maxAge {
				expired = append(expired, m.ID)
			}
		}
		if len(expired) == 0 {
			return nil
		}

		sessionIDs := tx.Model(&models.Session{}).Select("id").Where("match_id IN ?", expired)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&models.Location{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id IN ?", expired).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", expired).Delete(&models.Match{}).Error; err != nil {
			return err
		}

		count = len(expired)
		return nil
	})
	return count, err
}

// Joincodes are stored upper-case; lookups accept any casing.
func normalizeJoincode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
