package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds SELECT ... FOR UPDATE so the selected rows stay locked
// until the surrounding transaction commits. The capacity check in JoinMatch
// and the advancement check in SendLocation read and then write under the
// match row; at READ COMMITTED two such transactions could otherwise both see
// the stale state and both commit. SQLite has no FOR UPDATE syntax; its
// single-writer model already serializes these transactions.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
