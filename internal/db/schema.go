package db

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/CangTianYi/CS3331/internal/model"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    email         TEXT,
    phone         TEXT,
    address       TEXT,
    role          TEXT NOT NULL DEFAULT 'pending' CHECK (role IN ('admin', 'user', 'pending')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS item_types (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    name              TEXT UNIQUE NOT NULL,
    custom_attributes TEXT,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    type_id       INTEGER NOT NULL REFERENCES item_types(id) ON DELETE CASCADE,
    owner_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    description   TEXT,
    location      TEXT,
    contact_phone TEXT,
    contact_email TEXT,
    image_path    TEXT,
    custom_values TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_type ON items(type_id);
CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Default administrator credential seeded on first run. It is a placeholder
// and should be changed after deployment.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DefaultAdminEmail    = "admin@campus.edu"
)

// EnsureSchema creates all tables and indexes if they don't already exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// EnsureAdmin seeds an administrator account when no admin exists. It
// reports whether an account was created.
func (d *DB) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	var count int
	if _, err := d.QueryOne(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin'`, []any{&count},
	); err != nil {
		return false, fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}

	_, err = d.Exec(ctx,
		`INSERT INTO users (username, password_hash, email, role) VALUES (?, ?, ?, ?)`,
		username, string(hash), DefaultAdminEmail, model.RoleAdmin,
	)
	if err != nil {
		return false, fmt.Errorf("creating admin user: %w", err)
	}
	return true, nil
}

// Init opens the database at path, ensures the schema and seeds the admin.
func Init(ctx context.Context, path, adminUsername, adminPassword string) (*DB, bool, error) {
	d, err := Open(path)
	if err != nil {
		return nil, false, err
	}
	if err := d.EnsureSchema(ctx); err != nil {
		d.Close()
		return nil, false, err
	}
	seeded, err := d.EnsureAdmin(ctx, adminUsername, adminPassword)
	if err != nil {
		d.Close()
		return nil, false, err
	}
	return d, seeded, nil
}
