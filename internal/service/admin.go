package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CangTianYi/CS3331/internal/imaging"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/store"
)

// Admin covers item type management and account moderation. Every method
// requires an admin actor.
type Admin struct {
	users  *store.Users
	types  *store.Types
	items  *store.Items
	images *imaging.Store
}

// NewAdmin returns an Admin service. images may be nil when uploads are
// disabled.
func NewAdmin(users *store.Users, types *store.Types, items *store.Items, images *imaging.Store) *Admin {
	return &Admin{users: users, types: types, items: items, images: images}
}

func requireAdmin(actor *model.User) error {
	if !actor.IsAdmin() {
		return model.ErrForbidden
	}
	return nil
}

// CreateType adds an item type.
func (a *Admin) CreateType(ctx context.Context, actor *model.User, name string, attrs []model.Attribute) (*model.ItemType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, attrs, err := cleanType(name, attrs)
	if err != nil {
		return nil, err
	}

	typ, err := a.types.Create(ctx, name, attrs)
	if errors.Is(err, model.ErrConflict) {
		return nil, fmt.Errorf("type name already exists: %w", model.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("item type created", "user", actor.Username, "type", typ.Name, "attributes", len(typ.Attributes))
	return typ, nil
}

// UpdateType renames a type and replaces its attribute schema.
func (a *Admin) UpdateType(ctx context.Context, actor *model.User, id int64, name string, attrs []model.Attribute) (*model.ItemType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, attrs, err := cleanType(name, attrs)
	if err != nil {
		return nil, err
	}

	changed, err := a.types.Update(ctx, id, name, attrs)
	if errors.Is(err, model.ErrConflict) {
		return nil, fmt.Errorf("type name already exists: %w", model.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("type %d: %w", id, model.ErrNotFound)
	}

	slog.Info("item type updated", "user", actor.Username, "type", name, "id", id)
	return a.types.Get(ctx, id)
}

func cleanType(name string, attrs []model.Attribute) (string, []model.Attribute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: type name cannot be empty", model.ErrValidation)
	}
	attrs, err := model.ValidateAttributes(attrs)
	if err != nil {
		return "", nil, err
	}
	return name, attrs, nil
}

// DeleteType removes a type and, by cascade, its items. Images left without
// an item are swept.
func (a *Admin) DeleteType(ctx context.Context, actor *model.User, id int64) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}

	removed, err := a.types.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("item type deleted", "user", actor.Username, "id", id)
		a.sweepImages(ctx)
	}
	return removed, nil
}

// PendingUsers lists accounts awaiting approval.
func (a *Admin) PendingUsers(ctx context.Context, actor *model.User) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return a.users.PendingUsers(ctx)
}

// Users lists every account.
func (a *Admin) Users(ctx context.Context, actor *model.User) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return a.users.List(ctx)
}

// Approve promotes a pending account. Approving twice is a no-op.
func (a *Admin) Approve(ctx context.Context, actor *model.User, id int64) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	changed, err := a.users.Approve(ctx, id)
	if err != nil {
		return false, err
	}
	if changed {
		slog.Info("user approved", "user", actor.Username, "id", id)
	}
	return changed, nil
}

// Reject deletes an account that is still pending.
func (a *Admin) Reject(ctx context.Context, actor *model.User, id int64) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	removed, err := a.users.Reject(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("user rejected", "user", actor.Username, "id", id)
	}
	return removed, nil
}

// DeleteUser removes a non-admin account and its items.
func (a *Admin) DeleteUser(ctx context.Context, actor *model.User, id int64) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	removed, err := a.users.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("user deleted", "user", actor.Username, "id", id)
		a.sweepImages(ctx)
	}
	return removed, nil
}

// sweepImages removes upload files no item references any more. Failures are
// logged; the triggering delete has already committed.
func (a *Admin) sweepImages(ctx context.Context) {
	if a.images == nil {
		return
	}
	n, err := a.images.Sweep(func() (map[string]bool, error) {
		return a.items.ImagePaths(ctx)
	})
	if err != nil {
		slog.Error("failed to sweep images", "error", err)
		return
	}
	if n > 0 {
		slog.Info("orphaned images removed", "count", n)
	}
}
