package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/repositories"

	"github.com/stretchr/testify/require"
)

func sampleOrder() models.Order {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Order{
		ID:          "o1",
		TableNumber: "7",
		Status:      models.StatusCooking,
		Staff:       "Anna",
		CreatedAt:   now,
		LastActivity: now.Add(5 * time.Minute),
		Items: []models.OrderItem{
			{
				MenuItem:  models.MenuItem{ID: "m1", Name: "Margherita", Category: models.CategoryPizzas},
				Quantity:  2,
				Completed: true,
				Notes:     []string{"well done", "no basil"},
			},
			{
				MenuItem: models.MenuItem{
					ID:           "m2",
					Name:         "Menu Fisso",
					Category:     models.CategoryCombo,
					ComboItemIDs: []string{"p1", "p2"},
				},
				Quantity:       1,
				CompletedParts: []string{"p1"},
				ServedParts:    []string{"p1"},
			},
		},
	}
}

func TestOrderRoundTrip(t *testing.T) {
	order := sampleOrder()

	row, err := EncodeOrder("tenant-1", order)
	require.NoError(t, err)
	require.Equal(t, "tenant-1", row.TenantID)
	require.Equal(t, "COOKING", row.Status)

	decoded, err := DecodeOrder(*row)
	require.NoError(t, err)
	require.Equal(t, order, decoded)
}

func TestDeliveryMetadataRidesInFirstElement(t *testing.T) {
	order := sampleOrder()
	order.Delivery = &models.DeliveryInfo{
		CustomerName: "Rossi",
		Address:      "Via Roma 1",
		Time:         "20:30",
	}

	row, err := EncodeOrder("tenant-1", order)
	require.NoError(t, err)

	var wire []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(row.Items, &wire))
	require.Len(t, wire, 3)
	require.Contains(t, wire[0], "_meta")
	require.NotContains(t, wire[0], "menuItem")

	decoded, err := DecodeOrder(*row)
	require.NoError(t, err)
	require.Equal(t, order, decoded)
	require.Len(t, decoded.Items, 2)
}

func TestDecodeOrderWithoutMetadataElement(t *testing.T) {
	order := sampleOrder()
	row, err := EncodeOrder("tenant-1", order)
	require.NoError(t, err)

	decoded, err := DecodeOrder(*row)
	require.NoError(t, err)
	require.Nil(t, decoded.Delivery)
}

func TestNotesJoinedOnWireOnly(t *testing.T) {
	order := sampleOrder()
	row, err := EncodeOrder("tenant-1", order)
	require.NoError(t, err)

	var wire []map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Items, &wire))
	require.Equal(t, "well done||no basil", wire[0]["notes"])

	decoded, err := DecodeOrder(*row)
	require.NoError(t, err)
	require.Equal(t, []string{"well done", "no basil"}, decoded.Items[0].Notes)
}

func TestDecodeOrderMalformedPayload(t *testing.T) {
	row := repositories.OrderRow{ID: "bad", Items: []byte(`{broken`)}
	_, err := DecodeOrder(row)
	require.Error(t, err)
}

func TestDecodeOrderSkipsElementsWithoutMenuItem(t *testing.T) {
	row := repositories.OrderRow{
		ID:          "o1",
		TableNumber: "3",
		Status:      "PENDING",
		Items:       []byte(`[{"quantity":2},{"menuItem":{"id":"m1"},"quantity":1}]`),
	}

	decoded, err := DecodeOrder(row)
	require.NoError(t, err)
	require.Len(t, decoded.Items, 1)
	require.Equal(t, "m1", decoded.Items[0].MenuItem.ID)
}

func TestMenuItemRoundTrip(t *testing.T) {
	item := models.MenuItem{
		ID:           "m1",
		Name:         "Carbonara",
		Price:        12.5,
		Category:     models.CategoryMains,
		Ingredients:  []string{"guanciale", "pecorino"},
		Allergens:    []string{"eggs"},
		Department:   models.DepartmentKitchen,
		ComboItemIDs: nil,
	}

	row, err := EncodeMenuItem("tenant-1", item)
	require.NoError(t, err)
	require.Equal(t, "tenant-1", row.TenantID)

	decoded := DecodeMenuItem(*row)
	require.Equal(t, item, decoded)
}

func TestDecodeMenuItemMalformedColumnsFailSoft(t *testing.T) {
	row := repositories.MenuItemRow{
		ID:          "m1",
		Name:        "Tiramisu",
		Category:    "desserts",
		Ingredients: []byte(`{bad`),
		Allergens:   []byte(`null`),
	}

	decoded := DecodeMenuItem(row)
	require.Equal(t, "Tiramisu", decoded.Name)
	require.Nil(t, decoded.Ingredients)
	require.Nil(t, decoded.Allergens)
}
