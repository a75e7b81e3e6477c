package sync

import (
	"encoding/json"
	"strings"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/repositories"

	"github.com/pkg/errors"
)

// NoteDelimiter joins a line's note strings on the wire. The model keeps
// notes as an ordered slice; the joined form is an encoding detail that
// never leaves this package.
const NoteDelimiter = "||"

// wireItem is one element of the remote items payload. The remote schema
// has no columns for delivery metadata, so the first element may be a pure
// side-channel object carrying it (Meta set, MenuItem nil). The codec strips
// and restores that element; nothing outside this package ever sees it.
type wireItem struct {
	Meta           *models.DeliveryInfo `json:"_meta,omitempty"`
	MenuItem       *models.MenuItem     `json:"menuItem,omitempty"`
	Quantity       int                  `json:"quantity,omitempty"`
	Completed      bool                 `json:"completed,omitempty"`
	Served         bool                 `json:"served,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	IsAddedLater   bool                 `json:"isAddedLater,omitempty"`
	CompletedParts []string             `json:"completedParts,omitempty"`
	ServedParts    []string             `json:"servedParts,omitempty"`
}

// EncodeOrder translates a local order into its remote row shape.
func EncodeOrder(tenantID string, o models.Order) (*repositories.OrderRow, error) {
	wire := make([]wireItem, 0, len(o.Items)+1)
	if o.Delivery != nil && !o.Delivery.Empty() {
		delivery := *o.Delivery
		wire = append(wire, wireItem{Meta: &delivery})
	}
	for _, it := range o.Items {
		menuItem := it.MenuItem
		wire = append(wire, wireItem{
			MenuItem:       &menuItem,
			Quantity:       it.Quantity,
			Completed:      it.Completed,
			Served:         it.Served,
			Notes:          strings.Join(it.Notes, NoteDelimiter),
			IsAddedLater:   it.IsAddedLater,
			CompletedParts: it.CompletedParts,
			ServedParts:    it.ServedParts,
		})
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode items payload")
	}

	return &repositories.OrderRow{
		ID:           o.ID,
		TenantID:     tenantID,
		TableNumber:  o.TableNumber,
		Status:       string(o.Status),
		Items:        payload,
		Staff:        o.Staff,
		LastActivity: o.LastActivity,
		CreatedAt:    o.CreatedAt,
	}, nil
}

// DecodeOrder translates a remote row back into the local order shape,
// restoring the smuggled delivery metadata. Metadata written by EncodeOrder
// survives the round trip unchanged when no concurrent writer touched the
// same order.
func DecodeOrder(row repositories.OrderRow) (models.Order, error) {
	var wire []wireItem
	if err := json.Unmarshal(row.Items, &wire); err != nil {
		return models.Order{}, errors.Wrapf(err, "failed to decode items payload for order %s", row.ID)
	}

	o := models.Order{
		ID:           row.ID,
		TableNumber:  row.TableNumber,
		Status:       models.Status(row.Status),
		Staff:        row.Staff,
		LastActivity: row.LastActivity,
		CreatedAt:    row.CreatedAt,
	}

	if len(wire) > 0 && wire[0].Meta != nil && wire[0].MenuItem == nil {
		delivery := *wire[0].Meta
		o.Delivery = &delivery
		wire = wire[1:]
	}

	o.Items = make([]models.OrderItem, 0, len(wire))
	for _, w := range wire {
		if w.MenuItem == nil {
			continue
		}
		item := models.OrderItem{
			MenuItem:       *w.MenuItem,
			Quantity:       w.Quantity,
			Completed:      w.Completed,
			Served:         w.Served,
			IsAddedLater:   w.IsAddedLater,
			CompletedParts: w.CompletedParts,
			ServedParts:    w.ServedParts,
		}
		if w.Notes != "" {
			item.Notes = strings.Split(w.Notes, NoteDelimiter)
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

// EncodeMenuItem translates a local menu item into its remote row shape.
func EncodeMenuItem(tenantID string, m models.MenuItem) (*repositories.MenuItemRow, error) {
	ingredients, err := json.Marshal(m.Ingredients)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode ingredients")
	}
	allergens, err := json.Marshal(m.Allergens)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode allergens")
	}
	combo, err := json.Marshal(m.ComboItemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode combo ids")
	}
	return &repositories.MenuItemRow{
		ID:           m.ID,
		TenantID:     tenantID,
		Name:         m.Name,
		Price:        m.Price,
		Category:     string(m.Category),
		Description:  m.Description,
		Ingredients:  ingredients,
		Allergens:    allergens,
		Image:        m.Image,
		Department:   m.Department,
		ComboItemIDs: combo,
	}, nil
}

// DecodeMenuItem translates a remote menu row back into the local shape.
// Malformed JSON columns fail soft to empty slices.
func DecodeMenuItem(row repositories.MenuItemRow) models.MenuItem {
	m := models.MenuItem{
		ID:          row.ID,
		Name:        row.Name,
		Price:       row.Price,
		Category:    models.Category(row.Category),
		Description: row.Description,
		Image:       row.Image,
		Department:  row.Department,
	}
	_ = json.Unmarshal(row.Ingredients, &m.Ingredients)
	_ = json.Unmarshal(row.Allergens, &m.Allergens)
	_ = json.Unmarshal(row.ComboItemIDs, &m.ComboItemIDs)
	return m
}
