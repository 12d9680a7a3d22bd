// Package dbutil holds helpers shared by the SQL-backed stores.
package dbutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BuildPostgresDSN turns a configured database URL plus separate credentials
// into a lib/pq connection string.
//
// dCache deployments usually carry JDBC URLs such as
// "jdbc:postgresql://db.example.org/chimera"; the "jdbc:" prefix is dropped and
// the "postgresql" scheme is accepted as is. Credentials given separately take
// precedence over any embedded in the URL.
func BuildPostgresDSN(rawURL, user, password string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(rawURL), "jdbc:")
	if trimmed == "" {
		return "", fmt.Errorf("database url is empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid database url %q: %w", rawURL, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}

	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}

	return u.String(), nil
}

// ConfigurePool caps the pool at maxConnections (0 leaves it unlimited).
func ConfigurePool(db *sql.DB, maxConnections int) {
	if maxConnections > 0 {
		db.SetMaxOpenConns(maxConnections)
		db.SetMaxIdleConns(maxConnections)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
}
