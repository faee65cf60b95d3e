// exposes a Store that backs the prayer core with a SQL database
package db

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// Store implements the prayer core's ports on postgres or sqlite. Queries are
// written with "?" placeholders and rebound for the connection's driver.
type Store struct {
	db *sqlx.DB
}

// compile-time check that Store implements prayer.Store
var _ prayer.Store = (*Store)(nil)

func NewStore(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// isUniqueViolation reports whether err comes from a unique or primary key
// constraint on either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
