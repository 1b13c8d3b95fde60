package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CangTianYi/CS3331/internal/imaging"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/store"
)

// Market covers browsing, posting and removing listings.
type Market struct {
	types  *store.Types
	items  *store.Items
	images *imaging.Store
}

// NewMarket returns a Market service. images may be nil when uploads are
// disabled.
func NewMarket(types *store.Types, items *store.Items, images *imaging.Store) *Market {
	return &Market{types: types, items: items, images: images}
}

// Upload is an image attached to a new listing.
type Upload struct {
	Name string
	Body io.Reader
}

// Types lists item types ordered by name.
func (m *Market) Types(ctx context.Context) ([]model.ItemType, error) {
	return m.types.List(ctx)
}

// Type returns one item type.
func (m *Market) Type(ctx context.Context, id int64) (*model.ItemType, error) {
	typ, err := m.types.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if typ == nil {
		return nil, fmt.Errorf("type %d: %w", id, model.ErrNotFound)
	}
	return typ, nil
}

// Browse lists the items of one type, or every item when typeID is zero.
func (m *Market) Browse(ctx context.Context, typeID int64) ([]model.Item, error) {
	if typeID == 0 {
		return m.items.List(ctx)
	}
	return m.items.ListByType(ctx, typeID)
}

// Search matches keyword within one type. An empty keyword browses the type.
func (m *Market) Search(ctx context.Context, typeID int64, keyword string) ([]model.Item, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || typeID == 0 {
		if keyword != "" {
			return nil, fmt.Errorf("%w: search needs a type", model.ErrValidation)
		}
		return m.Browse(ctx, typeID)
	}
	return m.items.Search(ctx, typeID, keyword)
}

// Mine lists the actor's own items.
func (m *Market) Mine(ctx context.Context, actor *model.User) ([]model.Item, error) {
	if actor == nil {
		return nil, model.ErrForbidden
	}
	return m.items.ListByOwner(ctx, actor.ID)
}

// Item returns one listing.
func (m *Market) Item(ctx context.Context, id int64) (*model.Item, error) {
	item, err := m.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return item, nil
}

// Post validates and stores a new listing owned by actor. The image, when
// given, is saved first and removed again if the insert fails; sweeps wait
// until the insert is done.
func (m *Market) Post(ctx context.Context, actor *model.User, in model.NewItem, img *Upload) (*model.Item, error) {
	if actor == nil || !model.RoleAtLeast(actor.Role, model.RoleUser) {
		return nil, model.ErrForbidden
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	switch {
	case in.Name == "":
		return nil, fmt.Errorf("%w: please enter item name", model.ErrValidation)
	case in.Location == "":
		return nil, fmt.Errorf("%w: please enter location", model.ErrValidation)
	case in.ContactPhone == "":
		return nil, fmt.Errorf("%w: please enter phone number", model.ErrValidation)
	}

	typ, err := m.types.Get(ctx, in.TypeID)
	if err != nil {
		return nil, err
	}
	if typ == nil {
		return nil, fmt.Errorf("%w: item type %d does not exist", model.ErrValidation, in.TypeID)
	}
	if in.CustomValues != nil {
		values := make(map[string]string, len(in.CustomValues))
		for k, v := range in.CustomValues {
			values[k] = strings.TrimSpace(v)
		}
		in.CustomValues = values
	}
	if err := typ.CheckValues(in.CustomValues); err != nil {
		return nil, err
	}

	in.OwnerID = actor.ID
	in.ImagePath = ""
	if img != nil {
		if m.images == nil {
			return nil, fmt.Errorf("%w: image uploads are disabled", model.ErrValidation)
		}
		done := m.images.BeginUpload()
		defer done()
		path, err := m.images.Save(img.Body, img.Name)
		if err != nil {
			return nil, err
		}
		in.ImagePath = path
	}

	item, err := m.items.Add(ctx, in)
	if err != nil {
		if in.ImagePath != "" {
			if rerr := m.images.Remove(in.ImagePath); rerr != nil {
				slog.Error("failed to remove image after failed post", "path", in.ImagePath, "error", rerr)
			}
		}
		return nil, err
	}

	slog.Info("item posted", "user", actor.Username, "item", item.Name, "id", item.ID, "type", typ.Name)
	return item, nil
}

// Remove deletes a listing. Admins may delete any item; everyone else only
// their own, and a request for someone else's item changes nothing. The image
// file is removed once no item references it.
func (m *Market) Remove(ctx context.Context, actor *model.User, id int64) (bool, error) {
	if actor == nil {
		return false, model.ErrForbidden
	}
	item, err := m.items.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	var ownerID int64
	if !actor.IsAdmin() {
		ownerID = actor.ID
	}
	removed, err := m.items.Delete(ctx, id, ownerID)
	if err != nil || !removed {
		return false, err
	}
	slog.Info("item deleted", "user", actor.Username, "item", item.Name, "id", id)

	if item.ImagePath != "" && m.images != nil {
		referenced, err := m.items.ImagePaths(ctx)
		if err != nil {
			slog.Error("failed to list referenced images", "error", err)
			return true, nil
		}
		if !referenced[item.ImagePath] {
			if err := m.images.Remove(item.ImagePath); err != nil {
				slog.Error("failed to remove item image", "path", item.ImagePath, "error", err)
			}
		}
	}
	return true, nil
}

// OpenImage opens the image of a listing.
func (m *Market) OpenImage(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	item, err := m.Item(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if item.ImagePath == "" || m.images == nil {
		return nil, "", fmt.Errorf("item %d has no image: %w", id, model.ErrNotFound)
	}
	f, mime, err := m.images.Open(item.ImagePath)
	if err != nil {
		return nil, "", err
	}
	return f, mime, nil
}
