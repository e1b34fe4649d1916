package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate appends SELECT ... FOR UPDATE on dialects that support row locks.
// SQLite (used by tests) serializes writers on its own, so the clause is
// skipped there rather than breaking the query.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return tx
	}
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
