package services

import (
	"errors"
	"log"
	"strings"

	"github.com/dedestem/opdevlucht-backend/models"
	"github.com/dedestem/opdevlucht-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

type joinMatchRequest struct {
	Joincode string `json:"joincode"`
	Name     string `json:"name"`
}

// JoinMatch adds a player to a lobby. The capacity check and role assignment
// read current sessions and then write a new one, so the whole thing runs in
// one transaction: two racing joins cannot both see a free slot that only one
// of them can have.
func (s *SessionService) JoinMatch(c *fiber.Ctx) error {
	var req joinMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}

	joincode := normalizeJoincode(req.Joincode)
	name := strings.TrimSpace(req.Name)
	if joincode == "" || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}

	token := utils.GenerateToken()
	avatar := utils.GeneratePlayerAvatar(name)

	var (
		role    models.Role
		matchID uint
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Lock the match row so two racing joins cannot both pass the
		// capacity check below.
		var match models.Match
		if err := lockForUpdate(tx).Where("joincode = ?", joincode).First(&match).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errMatchNotFound
			}
			return err
		}

		var players []models.Session
		if err := tx.Where("match_id = ?", match.ID).Find(&players).Error; err != nil {
			return err
		}
		if len(players) >= match.MaxPlayers {
			return errMatchFull
		}

		// Balance-seeking assignment; a tie goes to the hunters.
		hunters, criminals := 0, 0
		for _, p := range players {
			if p.Role == models.RoleHunter {
				hunters++
			} else {
				criminals++
			}
		}
		role = models.RoleHunter
		if hunters > criminals {
			role = models.RoleCriminal
		}
		matchID = match.ID

		return tx.Create(&models.Session{
			MatchID: match.ID,
			Name:    name,
			Role:    role,
			Token:   token,
			Avatar:  avatar,
		}).Error
	})
	switch {
	case errors.Is(err, errMatchNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
	case errors.Is(err, errMatchFull):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "match is full"})
	case err != nil:
		log.Printf("join-match failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	return c.JSON(fiber.Map{
		"role":    role,
		"token":   token,
		"matchId": matchID,
		"avatar":  avatar,
	})
}

type changeRoleRequest struct {
	MatchID  uint        `json:"matchId"`
	PlayerID uint        `json:"playerId"`
	NewRole  models.Role `json:"newRole"`
	Token    string      `json:"token"`
}

// ChangeRole lets the owner override a player's role. No re-balancing is
// applied afterwards; the owner is free to build lopsided teams.
func (s *SessionService) ChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data"})
	}
	if !req.NewRole.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role"})
	}
	if req.MatchID == 0 || req.PlayerID == 0 || strings.TrimSpace(req.Token) == "" {
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

		return tx.Model(&models.Session{}).
			Where("id = ? AND match_id = ?", req.PlayerID, req.MatchID).
			Update("role", req.NewRole).Error
	})
	switch {
	case errors.Is(err, errNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized"})
	case err != nil:
		log.Printf("change-role failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// GetMatchPlayers lists the players of a match in join order.
func (s *SessionService) GetMatchPlayers(c *fiber.Ctx) error {
	joincode := normalizeJoincode(c.Params("joincode"))
	if joincode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "joincode required"})
	}

	var match models.Match
	if err := s.DB.Where("joincode = ?", joincode).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("match-players failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	players := []models.MatchPlayer{}
	if err := s.DB.Model(&models.Session{}).
		Select("id, name, role, is_owner, avatar").
		Where("match_id = ?", match.ID).
		Order("created_at ASC, id ASC").
		Find(&players).Error; err != nil {
		log.Printf("match-players failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	return c.JSON(fiber.Map{"players": players})
}

type leaveMatchRequest struct {
	Token string `json:"token"`
}

// LeaveMatch removes the caller's session. Deleting the last session deletes
// the match with it, and an owner leaving hands ownership to the oldest
// remaining session — all in one transaction via removeSession.
func (s *SessionService) LeaveMatch(c *fiber.Ctx) error {
	var req leaveMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid token"})
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid token"})
	}

	var out removalOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.Where("token = ?", token).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errSessionNotFound
			}
			return err
		}

		var err error
		out, err = removeSession(tx, &session)
		return err
	})
	switch {
	case errors.Is(err, errSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	case err != nil:
		log.Printf("leave-match failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown error"})
	}

	if out.MatchDeleted {
		return c.JSON(fiber.Map{
			"success": true,
			"info":    "match deleted because no players left",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
