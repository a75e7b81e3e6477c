package models

// ItemCompleted reports whether one order line counts as kitchen-complete.
// A combo line is complete only when every tracked sub-part is in its
// completed set; a plain line uses its own flag.
func ItemCompleted(it OrderItem) bool {
	if it.MenuItem.IsCombo() {
		return containsAll(it.CompletedParts, it.MenuItem.ComboItemIDs)
	}
	return it.Completed
}

// ItemServed is the dining-room counterpart of ItemCompleted.
func ItemServed(it OrderItem) bool {
	if it.MenuItem.IsCombo() {
		return containsAll(it.ServedParts, it.MenuItem.ComboItemIDs)
	}
	return it.Served
}

// ItemCompletedInScope evaluates completion against only the combo sub-parts
// the caller cares about (a department-scoped kitchen view). A line with no
// relevant sub-parts is vacuously complete for that scope, so a pizzeria
// board can clear a combo once its own portion is out even while the kitchen
// portion is still pending. Plain lines ignore the scope.
func ItemCompletedInScope(it OrderItem, relevant func(partID string) bool) bool {
	if !it.MenuItem.IsCombo() {
		return it.Completed
	}
	for _, part := range it.MenuItem.ComboItemIDs {
		if relevant != nil && !relevant(part) {
			continue
		}
		if !contains(it.CompletedParts, part) {
			return false
		}
	}
	return true
}

// DeriveStatus computes an order's status from its item flags: READY when
// every line is complete, PENDING when none is (not even a combo sub-part),
// COOKING otherwise. Callers must not apply the result to DELIVERED orders;
// that status is terminal for derivation.
func DeriveStatus(items []OrderItem) Status {
	if len(items) == 0 {
		return StatusPending
	}
	all := true
	none := true
	for _, it := range items {
		if ItemCompleted(it) {
			none = false
		} else {
			all = false
		}
		// A partially completed combo is kitchen activity even though the
		// line itself is not complete yet.
		if it.MenuItem.IsCombo() && len(it.CompletedParts) > 0 {
			none = false
		}
	}
	switch {
	case all:
		return StatusReady
	case none:
		return StatusPending
	default:
		return StatusCooking
	}
}

// AllServed reports whether every line of the order has reached the table.
func AllServed(items []OrderItem) bool {
	for _, it := range items {
		if !ItemServed(it) {
			return false
		}
	}
	return len(items) > 0
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func containsAll(set []string, ids []string) bool {
	for _, id := range ids {
		if !contains(set, id) {
			return false
		}
	}
	return true
}

// ToggleSet adds id to the set if absent, removes it if present, and returns
// the new set.
func ToggleSet(set []string, id string) []string {
	for i, v := range set {
		if v == id {
			return append(set[:i:i], set[i+1:]...)
		}
	}
	return append(set, id)
}

// AddToSet returns the set with id added, without duplicates.
func AddToSet(set []string, id string) []string {
	if contains(set, id) {
		return set
	}
	return append(set, id)
}
