// Package service holds the marketplace business rules that sit between the
// front ends and the stores: input validation, role checks, the pending
// account gate and image bookkeeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/store"
)

// Auth handles registration and sign-in.
type Auth struct {
	users *store.Users
}

// NewAuth returns an Auth service.
func NewAuth(users *store.Users) *Auth {
	return &Auth{users: users}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
}

// Register validates the form and creates a pending account.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}
	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", model.ErrValidation)
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	user, err := a.users.Register(ctx, username, in.Password,
		strings.TrimSpace(in.Email), strings.TrimSpace(in.Phone), strings.TrimSpace(in.Address))
	if errors.Is(err, model.ErrConflict) {
		return nil, fmt.Errorf("username already exists: %w", model.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user", user.Username, "id", user.ID)
	return user, nil
}

// Login checks credentials and refuses accounts still awaiting approval.
func (a *Auth) Login(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: please enter username and password", model.ErrValidation)
	}

	user, err := a.users.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			slog.Warn("login failed", "username", username)
		}
		return nil, err
	}
	if user.Role == model.RolePending {
		slog.Info("login refused for pending account", "user", user.Username)
		return nil, model.ErrPendingApproval
	}

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	return user, nil
}

// Profile returns the current profile of the session holder.
func (a *Auth) Profile(ctx context.Context, id int64) (*model.User, error) {
	user, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return user, nil
}

// ChangePassword replaces the caller's password.
func (a *Auth) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password required", model.ErrValidation)
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}
	if err := a.users.ChangePassword(ctx, id, current, next); err != nil {
		return err
	}
	slog.Info("user changed own password", "id", id)
	return nil
}
