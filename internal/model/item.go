package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Attribute kinds for item type custom fields.
const (
	AttrText   = "text"
	AttrNumber = "number"
	AttrDate   = "date"
)

// DateLayout is the format of date-kind custom values.
const DateLayout = "2006-01-02"

// Attribute is one custom field definition of an item type.
type Attribute struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ItemType is an admin-defined category with its custom field schema.
type ItemType struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Attributes []Attribute `json:"custom_attributes"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Item is a marketplace listing.
type Item struct {
	ID           int64             `json:"id"`
	TypeID       int64             `json:"type_id"`
	OwnerID      int64             `json:"owner_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Location     string            `json:"location,omitempty"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	ContactEmail string            `json:"contact_email,omitempty"`
	ImagePath    string            `json:"image_path,omitempty"`
	CustomValues map[string]string `json:"custom_values"`
	CreatedAt    time.Time         `json:"created_at"`

	// Joined fields.
	OwnerName string `json:"owner_name,omitempty"`
	TypeName  string `json:"type_name,omitempty"`
}

// NewItem holds the fields supplied when posting an item.
type NewItem struct {
	TypeID       int64             `json:"type_id"`
	OwnerID      int64             `json:"-"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Location     string            `json:"location"`
	ContactPhone string            `json:"contact_phone"`
	ContactEmail string            `json:"contact_email"`
	ImagePath    string            `json:"-"`
	CustomValues map[string]string `json:"custom_values"`
}

// ValidateAttributes checks attribute names are present and unique and that
// every kind is known. Empty kinds default to text.
func ValidateAttributes(attrs []Attribute) ([]Attribute, error) {
	seen := make(map[string]bool, len(attrs))
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate attribute %q", ErrValidation, name)
		}
		seen[name] = true

		kind := a.Type
		if kind == "" {
			kind = AttrText
		}
		if kind != AttrText && kind != AttrNumber && kind != AttrDate {
			return nil, fmt.Errorf("%w: attribute %q has unknown type %q", ErrValidation, name, a.Type)
		}
		out = append(out, Attribute{Name: name, Type: kind})
	}
	return out, nil
}

// CheckValues verifies custom values against the type schema. Values for
// attributes the type does not define are rejected; missing values are
// allowed.
func (t *ItemType) CheckValues(values map[string]string) error {
	kinds := make(map[string]string, len(t.Attributes))
	for _, a := range t.Attributes {
		kinds[a.Name] = a.Type
	}

	for name, v := range values {
		kind, ok := kinds[name]
		if !ok {
			return fmt.Errorf("%w: type %q has no attribute %q", ErrValidation, t.Name, name)
		}
		if v == "" {
			continue
		}
		switch kind {
		case AttrNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("%w: attribute %q must be a number", ErrValidation, name)
			}
		case AttrDate:
			if _, err := time.Parse(DateLayout, v); err != nil {
				return fmt.Errorf("%w: attribute %q must be a date (YYYY-MM-DD)", ErrValidation, name)
			}
		}
	}
	return nil
}
