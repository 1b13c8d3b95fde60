package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CangTianYi/CS3331/internal/db"
	"github.com/CangTianYi/CS3331/internal/model"
)

// Items manages listings.
type Items struct {
	db *db.DB
}

// NewItems returns an item manager backed by d.
func NewItems(d *db.DB) *Items {
	return &Items{db: d}
}

// itemSelect joins owner and type names into every read.
const itemSelect = `SELECT i.id, i.type_id, i.owner_id, i.name, i.description, i.location,
        i.contact_phone, i.contact_email, i.image_path, i.custom_values, i.created_at,
        u.username AS owner_name, t.name AS type_name
 FROM items i
 JOIN users u ON u.id = i.owner_id
 JOIN item_types t ON t.id = i.type_id`

const itemOrder = ` ORDER BY i.created_at DESC, i.id DESC`

type itemRow struct {
	item        model.Item
	description sql.NullString
	location    sql.NullString
	phone       sql.NullString
	email       sql.NullString
	image       sql.NullString
	values      sql.NullString
}

func (r *itemRow) dest() []any {
	return []any{&r.item.ID, &r.item.TypeID, &r.item.OwnerID, &r.item.Name, &r.description,
		&r.location, &r.phone, &r.email, &r.image, &r.values, &r.item.CreatedAt,
		&r.item.OwnerName, &r.item.TypeName}
}

func (r *itemRow) finish() model.Item {
	it := r.item
	it.Description = r.description.String
	it.Location = r.location.String
	it.ContactPhone = r.phone.String
	it.ContactEmail = r.email.String
	it.ImagePath = r.image.String
	it.CustomValues = decodeValues(r.values)
	return it
}

// decodeValues reads the JSON custom value column; null gives an empty map.
func decodeValues(raw sql.NullString) map[string]string {
	values := map[string]string{}
	if !raw.Valid || raw.String == "" {
		return values
	}
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil || values == nil {
		return map[string]string{}
	}
	return values
}

// Add inserts a new listing and returns it with joined names.
func (s *Items) Add(ctx context.Context, in model.NewItem) (*model.Item, error) {
	values := in.CustomValues
	if values == nil {
		values = map[string]string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding custom values: %w", err)
	}

	var image any
	if in.ImagePath != "" {
		image = in.ImagePath
	}

	res, err := s.db.Exec(ctx,
		`INSERT INTO items (type_id, owner_id, name, description, location,
		                    contact_phone, contact_email, image_path, custom_values)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TypeID, in.OwnerID, in.Name, in.Description, in.Location,
		in.ContactPhone, in.ContactEmail, image, string(encoded),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return s.Get(ctx, res.LastInsertID)
}

// Get returns an item by ID, or nil if absent.
func (s *Items) Get(ctx context.Context, id int64) (*model.Item, error) {
	var r itemRow
	found, err := s.db.QueryOne(ctx, itemSelect+` WHERE i.id = ?`, r.dest(), id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if !found {
		return nil, nil
	}
	it := r.finish()
	return &it, nil
}

// List returns every item, newest first.
func (s *Items) List(ctx context.Context) ([]model.Item, error) {
	return s.list(ctx, itemSelect+itemOrder)
}

// ListByType returns the items of one type, newest first.
func (s *Items) ListByType(ctx context.Context, typeID int64) ([]model.Item, error) {
	return s.list(ctx, itemSelect+` WHERE i.type_id = ?`+itemOrder, typeID)
}

// ListByOwner returns the items posted by one user, newest first.
func (s *Items) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	return s.list(ctx, itemSelect+` WHERE i.owner_id = ?`+itemOrder, ownerID)
}

// Search matches keyword as a substring of name or description within one
// type. SQLite LIKE is case-insensitive for ASCII.
func (s *Items) Search(ctx context.Context, typeID int64, keyword string) ([]model.Item, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return s.list(ctx,
		itemSelect+` WHERE i.type_id = ? AND (i.name LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`+itemOrder,
		typeID, pattern, pattern,
	)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Items) list(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	var items []model.Item
	err := s.db.QueryAll(ctx, query, func(rows *sql.Rows) error {
		var r itemRow
		if err := rows.Scan(r.dest()...); err != nil {
			return fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, r.finish())
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// Delete removes an item. With ownerID zero the delete is unscoped (admin);
// otherwise it only matches the owner's item, and a non-owner's request
// affects no rows. It reports whether a row was removed.
func (s *Items) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	var res db.Result
	var err error
	if ownerID != 0 {
		res, err = s.db.Exec(ctx, `DELETE FROM items WHERE id = ? AND owner_id = ?`, id, ownerID)
	} else {
		res, err = s.db.Exec(ctx, `DELETE FROM items WHERE id = ?`, id)
	}
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// ImagePaths returns the set of image paths still referenced by items.
func (s *Items) ImagePaths(ctx context.Context) (map[string]bool, error) {
	paths := map[string]bool{}
	err := s.db.QueryAll(ctx,
		`SELECT DISTINCT image_path FROM items WHERE image_path IS NOT NULL AND image_path != ''`,
		func(rows *sql.Rows) error {
			var p string
			if err := rows.Scan(&p); err != nil {
				return fmt.Errorf("scanning image path: %w", err)
			}
			paths[p] = true
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("listing image paths: %w", err)
	}
	return paths, nil
}
