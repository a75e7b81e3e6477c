package models

// Reservation is one booked table slot.
type Reservation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Guests   int    `json:"guests"`
	Table    string `json:"table,omitempty"`
	DateTime string `json:"dateTime"`
	Notes    string `json:"notes,omitempty"`
}

// AppSettings is the whole-object settings blob. It is loaded once per
// session, merged field-by-field over DefaultSettings, and always rewritten
// in full on save.
type AppSettings struct {
	RestaurantName  string              `json:"restaurantName"`
	LogoURL         string              `json:"logoUrl,omitempty"`
	TableCount      int                 `json:"tableCount"`
	CategoryRouting map[Category]string `json:"categoryRouting"`
	PrintEnabled    map[string]bool     `json:"printEnabled"`
	Reservations    []Reservation       `json:"reservations,omitempty"`
	SharedTables    map[string][]string `json:"sharedTables,omitempty"`
	Collaborators   map[string]string   `json:"collaborators,omitempty"`
}

// DefaultSettings returns the hardcoded defaults a partial remote payload is
// merged over. A missing remote field must never wipe a default.
func DefaultSettings() AppSettings {
	return AppSettings{
		RestaurantName: "Ristorante",
		TableCount:     12,
		CategoryRouting: map[Category]string{
			CategoryStarters: DepartmentKitchen,
			CategoryMains:    DepartmentKitchen,
			CategoryPizzas:   DepartmentPizzeria,
			CategorySides:    DepartmentKitchen,
			CategoryDesserts: DepartmentKitchen,
			CategoryDrinks:   DepartmentDiningRoom,
			CategoryCombo:    DepartmentKitchen,
		},
		PrintEnabled: map[string]bool{
			DepartmentKitchen:    true,
			DepartmentPizzeria:   true,
			DepartmentBar:        false,
			DepartmentDiningRoom: false,
		},
	}
}

// MergeSettings lays an incoming (possibly partial) payload over base,
// field by field. A remote blob missing a field must never wipe the value
// the defaults provide; whole-object replacement is exactly the failure
// mode this guards against.
func MergeSettings(base, incoming AppSettings) AppSettings {
	merged := base
	if incoming.RestaurantName != "" {
		merged.RestaurantName = incoming.RestaurantName
	}
	if incoming.LogoURL != "" {
		merged.LogoURL = incoming.LogoURL
	}
	if incoming.TableCount > 0 {
		merged.TableCount = incoming.TableCount
	}
	if len(incoming.CategoryRouting) > 0 {
		routing := make(map[Category]string, len(base.CategoryRouting))
		for k, v := range base.CategoryRouting {
			routing[k] = v
		}
		for k, v := range incoming.CategoryRouting {
			routing[k] = v
		}
		merged.CategoryRouting = routing
	}
	if len(incoming.PrintEnabled) > 0 {
		printEnabled := make(map[string]bool, len(base.PrintEnabled))
		for k, v := range base.PrintEnabled {
			printEnabled[k] = v
		}
		for k, v := range incoming.PrintEnabled {
			printEnabled[k] = v
		}
		merged.PrintEnabled = printEnabled
	}
	if incoming.Reservations != nil {
		merged.Reservations = incoming.Reservations
	}
	if incoming.SharedTables != nil {
		merged.SharedTables = incoming.SharedTables
	}
	if incoming.Collaborators != nil {
		merged.Collaborators = incoming.Collaborators
	}
	return merged
}

// DepartmentForItem resolves the preparation department of a menu item: an
// explicit per-item override wins over the category routing table.
func (s AppSettings) DepartmentForItem(item MenuItem) string {
	if item.Department != "" {
		return item.Department
	}
	if dept, ok := s.CategoryRouting[item.Category]; ok {
		return dept
	}
	return DepartmentKitchen
}
