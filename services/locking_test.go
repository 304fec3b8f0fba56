package services

import (
	"strings"
	"testing"

	"github.com/dedestem/opdevlucht-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestLockForUpdateLocksRowsOnPostgres(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=opdevlucht dbname=opdevlucht"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("failed to open dry-run db: %v", err)
	}

	stmt := lockForUpdate(db).Where("joincode = ?", "ABC234").Find(&models.Match{}).Statement
	if !strings.Contains(stmt.SQL.String(), "FOR UPDATE") {
		t.Fatalf("expected row locking in query, got %q", stmt.SQL.String())
	}
}

func TestLockForUpdateSkippedOnSQLite(t *testing.T) {
	db := newTestDB(t).Session(&gorm.Session{DryRun: true})

	stmt := lockForUpdate(db).Where("joincode = ?", "ABC234").Find(&models.Match{}).Statement
	if strings.Contains(stmt.SQL.String(), "FOR UPDATE") {
		t.Fatalf("sqlite has no FOR UPDATE syntax, got %q", stmt.SQL.String())
	}
}
