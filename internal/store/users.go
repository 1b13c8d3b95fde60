package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/CangTianYi/CS3331/internal/db"
	"github.com/CangTianYi/CS3331/internal/model"
)

// Users manages accounts and the approval workflow.
type Users struct {
	db *db.DB
}

// NewUsers returns a user manager backed by d.
func NewUsers(d *db.DB) *Users {
	return &Users{db: d}
}

const userColumns = `id, username, email, phone, address, role, created_at`

func userDest(u *model.User, email, phone, address *sql.NullString) []any {
	return []any{&u.ID, &u.Username, email, phone, address, &u.Role, &u.CreatedAt}
}

func scanUser(rows *sql.Rows) (model.User, error) {
	var u model.User
	var email, phone, address sql.NullString
	if err := rows.Scan(userDest(&u, &email, &phone, &address)...); err != nil {
		return u, fmt.Errorf("scanning user: %w", err)
	}
	u.Email, u.Phone, u.Address = email.String, phone.String, address.String
	return u, nil
}

// Register creates a pending account. It returns model.ErrConflict when the
// username is taken.
func (s *Users) Register(ctx context.Context, username, password, email, phone, address string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	res, err := s.db.Exec(ctx,
		`INSERT INTO users (username, password_hash, email, phone, address, role)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		username, string(hash), email, phone, address, model.RolePending,
	)
	if err != nil {
		return nil, fmt.Errorf("registering user %q: %w", username, err)
	}

	return s.Get(ctx, res.LastInsertID)
}

// Login verifies credentials and returns the profile. It does not reject
// pending accounts; that gate belongs to the caller.
func (s *Users) Login(ctx context.Context, username, password string) (*model.User, error) {
	u := &model.User{}
	var email, phone, address sql.NullString
	dest := append(userDest(u, &email, &phone, &address), &u.PasswordHash)

	found, err := s.db.QueryOne(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = ?`,
		dest, username,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	if !found {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	u.PasswordHash = ""
	u.Email, u.Phone, u.Address = email.String, phone.String, address.String
	return u, nil
}

// Get returns a user by ID, or nil if absent.
func (s *Users) Get(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	var email, phone, address sql.NullString
	found, err := s.db.QueryOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		userDest(u, &email, &phone, &address), id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if !found {
		return nil, nil
	}
	u.Email, u.Phone, u.Address = email.String, phone.String, address.String
	return u, nil
}

// PendingUsers returns accounts awaiting approval, oldest first.
func (s *Users) PendingUsers(ctx context.Context) ([]model.User, error) {
	return s.list(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at, id`,
		model.RolePending,
	)
}

// List returns all accounts.
func (s *Users) List(ctx context.Context) ([]model.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (s *Users) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	var users []model.User
	err := s.db.QueryAll(ctx, query, func(rows *sql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Approve promotes a pending account to a regular user. It reports whether a
// row changed; approving a non-pending account is a no-op.
func (s *Users) Approve(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Exec(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND role = ?`,
		model.RoleUser, id, model.RolePending,
	)
	if err != nil {
		return false, fmt.Errorf("approving user: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// Reject deletes an account only while it is still pending.
func (s *Users) Reject(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Exec(ctx,
		`DELETE FROM users WHERE id = ? AND role = ?`,
		id, model.RolePending,
	)
	if err != nil {
		return false, fmt.Errorf("rejecting user: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a non-admin account together with its items.
func (s *Users) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Exec(ctx,
		`DELETE FROM users WHERE id = ? AND role != ?`,
		id, model.RoleAdmin,
	)
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Users) ChangePassword(ctx context.Context, id int64, current, next string) error {
	var hash string
	found, err := s.db.QueryOne(ctx,
		`SELECT password_hash FROM users WHERE id = ?`, []any{&hash}, id,
	)
	if err != nil {
		return fmt.Errorf("getting password hash: %w", err)
	}
	if !found {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.ErrInvalidCredentials
		}
		return fmt.Errorf("comparing password: %w", err)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, string(newHash), id,
	); err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}
