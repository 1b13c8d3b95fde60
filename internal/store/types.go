package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CangTianYi/CS3331/internal/db"
	"github.com/CangTianYi/CS3331/internal/model"
)

// Types manages item types and their custom attribute schemas.
type Types struct {
	db *db.DB
}

// NewTypes returns an item type manager backed by d.
func NewTypes(d *db.DB) *Types {
	return &Types{db: d}
}

// decodeAttributes reads the JSON attribute column. Nulls and undecodable
// text give an empty list.
func decodeAttributes(raw sql.NullString) []model.Attribute {
	attrs := []model.Attribute{}
	if !raw.Valid || raw.String == "" {
		return attrs
	}
	if err := json.Unmarshal([]byte(raw.String), &attrs); err != nil || attrs == nil {
		return []model.Attribute{}
	}
	return attrs
}

func encodeAttributes(attrs []model.Attribute) (string, error) {
	if attrs == nil {
		attrs = []model.Attribute{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	return string(data), nil
}

// Create adds an item type. It returns model.ErrConflict on a duplicate name.
func (s *Types) Create(ctx context.Context, name string, attrs []model.Attribute) (*model.ItemType, error) {
	encoded, err := encodeAttributes(attrs)
	if err != nil {
		return nil, err
	}

	res, err := s.db.Exec(ctx,
		`INSERT INTO item_types (name, custom_attributes) VALUES (?, ?)`,
		name, encoded,
	)
	if err != nil {
		return nil, fmt.Errorf("creating type %q: %w", name, err)
	}

	return s.Get(ctx, res.LastInsertID)
}

// Update renames a type and replaces its attribute schema. Existing items keep
// their stored values.
func (s *Types) Update(ctx context.Context, id int64, name string, attrs []model.Attribute) (bool, error) {
	encoded, err := encodeAttributes(attrs)
	if err != nil {
		return false, err
	}

	res, err := s.db.Exec(ctx,
		`UPDATE item_types SET name = ?, custom_attributes = ? WHERE id = ?`,
		name, encoded, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating type: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a type; its items are removed by cascade.
func (s *Types) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM item_types WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting type: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// List returns all types ordered by name.
func (s *Types) List(ctx context.Context) ([]model.ItemType, error) {
	var types []model.ItemType
	err := s.db.QueryAll(ctx,
		`SELECT id, name, custom_attributes, created_at FROM item_types ORDER BY name`,
		func(rows *sql.Rows) error {
			var t model.ItemType
			var raw sql.NullString
			if err := rows.Scan(&t.ID, &t.Name, &raw, &t.CreatedAt); err != nil {
				return fmt.Errorf("scanning type: %w", err)
			}
			t.Attributes = decodeAttributes(raw)
			types = append(types, t)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("listing types: %w", err)
	}
	return types, nil
}

// Get returns a type by ID, or nil if absent.
func (s *Types) Get(ctx context.Context, id int64) (*model.ItemType, error) {
	t := &model.ItemType{}
	var raw sql.NullString
	found, err := s.db.QueryOne(ctx,
		`SELECT id, name, custom_attributes, created_at FROM item_types WHERE id = ?`,
		[]any{&t.ID, &t.Name, &raw, &t.CreatedAt}, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting type: %w", err)
	}
	if !found {
		return nil, nil
	}
	t.Attributes = decodeAttributes(raw)
	return t, nil
}
