package db

import (
	"errors"
	"os"

	"github.com/jmoiron/sqlx"
)

// ErrNoTestDatabase is returned by OpenTestStore when TEST_DATABASE_URL is unset.
var ErrNoTestDatabase = errors.New("TEST_DATABASE_URL environment variable is not set")

// OpenTestStore connects to the postgres database named by TEST_DATABASE_URL
// and applies the migrations found in migrationsPath.
func OpenTestStore(migrationsPath string) (*Store, *sqlx.DB, error) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return nil, nil, ErrNoTestDatabase
	}

	conn, err := Init(DriverPostgres, dbURL)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(conn, migrationsPath); err != nil {
		conn.Close()
		return nil, nil, err
	}

	return NewStore(conn), conn, nil
}
