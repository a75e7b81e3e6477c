package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSettingsPartialPayloadKeepsDefaults(t *testing.T) {
	incoming := AppSettings{RestaurantName: "Da Mario"}
	merged := MergeSettings(DefaultSettings(), incoming)

	require.Equal(t, "Da Mario", merged.RestaurantName)
	require.Equal(t, 12, merged.TableCount)
	require.Equal(t, DepartmentPizzeria, merged.CategoryRouting[CategoryPizzas])
	require.True(t, merged.PrintEnabled[DepartmentKitchen])
}

func TestMergeSettingsRoutingOverlaysDefaults(t *testing.T) {
	incoming := AppSettings{
		CategoryRouting: map[Category]string{CategoryDesserts: DepartmentBar},
	}
	merged := MergeSettings(DefaultSettings(), incoming)

	require.Equal(t, DepartmentBar, merged.CategoryRouting[CategoryDesserts])
	// untouched entries survive
	require.Equal(t, DepartmentKitchen, merged.CategoryRouting[CategoryMains])
	require.Equal(t, DepartmentDiningRoom, merged.CategoryRouting[CategoryDrinks])
}

func TestMergeSettingsDoesNotMutateBase(t *testing.T) {
	base := DefaultSettings()
	incoming := AppSettings{
		CategoryRouting: map[Category]string{CategoryMains: DepartmentBar},
	}
	MergeSettings(base, incoming)

	require.Equal(t, DepartmentKitchen, base.CategoryRouting[CategoryMains])
}

func TestMergeSettingsZeroTableCountIgnored(t *testing.T) {
	merged := MergeSettings(DefaultSettings(), AppSettings{TableCount: 0})
	require.Equal(t, 12, merged.TableCount)

	merged = MergeSettings(DefaultSettings(), AppSettings{TableCount: 30})
	require.Equal(t, 30, merged.TableCount)
}

func TestDepartmentForItemOverrideWins(t *testing.T) {
	settings := DefaultSettings()

	pizza := MenuItem{Category: CategoryPizzas}
	require.Equal(t, DepartmentPizzeria, settings.DepartmentForItem(pizza))

	pizza.Department = DepartmentKitchen
	require.Equal(t, DepartmentKitchen, settings.DepartmentForItem(pizza))
}

func TestDepartmentForItemUnknownCategoryFallsBack(t *testing.T) {
	settings := AppSettings{}
	item := MenuItem{Category: Category("specials")}
	require.Equal(t, DepartmentKitchen, settings.DepartmentForItem(item))
}
