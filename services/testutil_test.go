package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dedestem/opdevlucht-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// newTestDB opens a per-test in-memory database. cache=shared keeps the
// database alive across the pooled connections GORM opens.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Match{}, &models.Session{}, &models.Location{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	matches   *MatchService
	sessions  *SessionService
	locations *LocationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		app:       fiber.New(),
		db:        db,
		matches:   NewMatchService(db),
		sessions:  NewSessionService(db),
		locations: NewLocationService(db),
	}

	env.app.Post("/create-match", env.matches.CreateMatch)
	env.app.Post("/start-match", env.matches.StartMatch)
	env.app.Get("/match-status/:joincode", env.matches.GetMatchStatus)
	env.app.Post("/join-match", env.sessions.JoinMatch)
	env.app.Post("/change-role", env.sessions.ChangeRole)
	env.app.Post("/leave-match", env.sessions.LeaveMatch)
	env.app.Get("/match-players/:joincode", env.sessions.GetMatchPlayers)
	env.app.Post("/send-location", env.locations.SendLocation)
	env.app.Get("/get-criminals-locations", env.locations.GetCriminalsLocations)

	return env
}

// do issues a request against the app and decodes a JSON body when there is one.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

// createMatch creates a match and returns its id, joincode and the owner token.
func (e *testEnv) createMatch(t *testing.T, name string, maxPlayers int) (uint, string, string) {
	t.Helper()
	code, body := e.do(t, "POST", "/create-match", map[string]any{
		"maxPlayers":       maxPlayers,
		"locationInterval": 5,
		"matchDuration":    60,
		"name":             name,
	})
	if code != 200 {
		t.Fatalf("create-match returned %d: %v", code, body)
	}
	return uint(body["id"].(float64)), body["joincode"].(string), body["token"].(string)
}

// joinMatch joins a player and returns the assigned role and token.
func (e *testEnv) joinMatch(t *testing.T, joincode, name string) (string, string) {
	t.Helper()
	code, body := e.do(t, "POST", "/join-match", map[string]any{
		"joincode": joincode,
		"name":     name,
	})
	if code != 200 {
		t.Fatalf("join-match returned %d: %v", code, body)
	}
	return body["role"].(string), body["token"].(string)
}

func (e *testEnv) roleCounts(t *testing.T, matchID uint) (hunters, criminals int64) {
	t.Helper()
	if err := e.db.Model(&models.Session{}).
		Where("match_id = ? AND role = ?", matchID, models.RoleHunter).
		Count(&hunters).Error; err != nil {
		t.Fatalf("failed to count hunters: %v", err)
	}
	if err := e.db.Model(&models.Session{}).
		Where("match_id = ? AND role = ?", matchID, models.RoleCriminal).
		Count(&criminals).Error; err != nil {
		t.Fatalf("failed to count criminals: %v", err)
	}
	return hunters, criminals
}

func (e *testEnv) currentIteration(t *testing.T, matchID uint) int {
	t.Helper()
	var match models.Match
	if err := e.db.First(&match, matchID).Error; err != nil {
		t.Fatalf("failed to load match %d: %v", matchID, err)
	}
	return match.CurrentIteration
}
