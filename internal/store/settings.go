package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/CangTianYi/CS3331/internal/db"
)

// Settings is a small key/value table for server-side secrets.
type Settings struct {
	db *db.DB
}

// NewSettings returns a settings store backed by d.
func NewSettings(d *db.DB) *Settings {
	return &Settings{db: d}
}

// JWTSecret retrieves the token signing secret, generating and storing one
// on first use. INSERT OR IGNORE followed by a read keeps concurrent first
// starts consistent.
func (s *Settings) JWTSecret(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	); err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	found, err := s.db.QueryOne(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`, []any{&secret},
	)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}
	if !found {
		return "", fmt.Errorf("jwt_secret missing after insert")
	}
	return secret, nil
}
