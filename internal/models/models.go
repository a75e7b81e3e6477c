package models

import (
	"strings"
	"time"
)

// Status is the lifecycle status of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCooking   Status = "COOKING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
)

// Next returns the status one forward step away. DELIVERED is terminal.
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusCooking
	case StatusCooking:
		return StatusReady
	case StatusReady:
		return StatusDelivered
	default:
		return StatusDelivered
	}
}

// Terminal reports whether the status is no longer subject to automatic
// derivation from item flags.
func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// Category is the fixed menu category enumeration.
type Category string

const (
	CategoryStarters Category = "starters"
	CategoryMains    Category = "mains"
	CategoryPizzas   Category = "pizzas"
	CategorySides    Category = "sides"
	CategoryDesserts Category = "desserts"
	CategoryDrinks   Category = "drinks"
	CategoryCombo    Category = "combo"
)

// Categories lists every valid menu category.
var Categories = []Category{
	CategoryStarters,
	CategoryMains,
	CategoryPizzas,
	CategorySides,
	CategoryDesserts,
	CategoryDrinks,
	CategoryCombo,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Preparation departments. DepartmentDiningRoom items need no kitchen work,
// so order lines routed there start out already completed.
const (
	DepartmentKitchen    = "kitchen"
	DepartmentPizzeria   = "pizzeria"
	DepartmentBar        = "bar"
	DepartmentDiningRoom = "dining-room"
)

// HistorySuffix marks the table identifier of an archived order. Freeing a
// table renames "4" to "4_HISTORY" instead of deleting rows, so reporting
// views can still see the receipt.
const HistorySuffix = "_HISTORY"

// MenuItem describes one entry of the restaurant menu.
type MenuItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Category     Category `json:"category"`
	Description  string   `json:"description,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Allergens    []string `json:"allergens,omitempty"`
	Image        string   `json:"image,omitempty"`
	Department   string   `json:"department,omitempty"`
	ComboItemIDs []string `json:"comboItemIds,omitempty"`
}

// IsCombo reports whether the item is a composite of other menu items.
func (m MenuItem) IsCombo() bool {
	return len(m.ComboItemIDs) > 0
}

// OrderItem is one line of an order. MenuItem is a denormalized snapshot
// taken at order-creation time; the menu owns the item, the order only
// references it by id.
type OrderItem struct {
	MenuItem       MenuItem `json:"menuItem"`
	Quantity       int      `json:"quantity"`
	Completed      bool     `json:"completed"`
	Served         bool     `json:"served"`
	Notes          []string `json:"notes,omitempty"`
	IsAddedLater   bool     `json:"isAddedLater,omitempty"`
	CompletedParts []string `json:"completedParts,omitempty"`
	ServedParts    []string `json:"servedParts,omitempty"`
}

// SameLine reports whether an incoming item should be merged into this line
// instead of appended: same menu item and identical notes.
func (it OrderItem) SameLine(other OrderItem) bool {
	if it.MenuItem.ID != other.MenuItem.ID {
		return false
	}
	return strings.Join(it.Notes, "\x00") == strings.Join(other.Notes, "\x00")
}

// DeliveryInfo carries the delivery-channel fields the remote schema has no
// columns for. It survives sync through the metadata cache and the wire
// side channel.
type DeliveryInfo struct {
	Time         string `json:"time,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Empty reports whether no delivery field is set.
func (d DeliveryInfo) Empty() bool {
	return d == DeliveryInfo{}
}

// Order is one table's (or delivery channel's) current set of requested
// items plus lifecycle status.
type Order struct {
	ID           string        `json:"id"`
	TableNumber  string        `json:"tableNumber"`
	Items        []OrderItem   `json:"items"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastActivity time.Time     `json:"lastActivity"`
	Staff        string        `json:"staff,omitempty"`
	Delivery     *DeliveryInfo `json:"delivery,omitempty"`
}

// Archived reports whether the order belongs to receipt history rather than
// a live table.
func (o Order) Archived() bool {
	return strings.HasSuffix(o.TableNumber, HistorySuffix)
}

// LiveTable returns the table identifier without the archival suffix.
func (o Order) LiveTable() string {
	return strings.TrimSuffix(o.TableNumber, HistorySuffix)
}
