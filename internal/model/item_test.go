package model

import (
	"errors"
	"testing"
)

func TestValidateAttributes(t *testing.T) {
	attrs, err := ValidateAttributes([]Attribute{
		{Name: " Brand ", Type: ""},
		{Name: "", Type: AttrNumber},
		{Name: "Price", Type: AttrNumber},
		{Name: "Bought", Type: AttrDate},
	})
	if err != nil {
		t.Fatalf("ValidateAttributes: %v", err)
	}
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes (blank names dropped), got %d", len(attrs))
	}
	if attrs[0].Name != "Brand" || attrs[0].Type != AttrText {
		t.Errorf("expected trimmed text attribute, got %+v", attrs[0])
	}

	if _, err := ValidateAttributes([]Attribute{{Name: "x", Type: "colour"}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for unknown kind, got %v", err)
	}
	if _, err := ValidateAttributes([]Attribute{{Name: "x"}, {Name: "x"}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for duplicate name, got %v", err)
	}
}

func TestCheckValues(t *testing.T) {
	typ := &ItemType{
		Name: "Books",
		Attributes: []Attribute{
			{Name: "Author", Type: AttrText},
			{Name: "Pages", Type: AttrNumber},
			{Name: "Published", Type: AttrDate},
		},
	}

	tests := []struct {
		name    string
		values  map[string]string
		wantErr bool
	}{
		{"empty", nil, false},
		{"all valid", map[string]string{"Author": "Lu Xun", "Pages": "212", "Published": "1923-08-01"}, false},
		{"blank number allowed", map[string]string{"Pages": ""}, false},
		{"decimal number", map[string]string{"Pages": "12.5"}, false},
		{"bad number", map[string]string{"Pages": "many"}, true},
		{"bad date", map[string]string{"Published": "01/08/1923"}, true},
		{"unknown attribute", map[string]string{"Colour": "red"}, true},
	}

	for _, tt := range tests {
		err := typ.CheckValues(tt.values)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: CheckValues error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
