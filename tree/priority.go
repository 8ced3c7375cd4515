package tree

import (
	"sort"
)

// Priority comparison classes. Children without a priority sort first, then
// numeric priorities ascending, then string priorities ascending. Ties are
// broken by child key in ascending lexicographic order, so the resulting
// order is total, deterministic and repeatable.
const (
	priorityClassNone = iota
	priorityClassNumber
	priorityClassString
)

func priorityClass(priority interface{}) int {
	switch priority.(type) {
	case nil:
		return priorityClassNone
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return priorityClassNumber
	case string:
		return priorityClassString
	default:
		// Unrecognized priorities group with "none" so the order stays total.
		return priorityClassNone
	}
}

func priorityNumber(priority interface{}) float64 {
	switch v := priority.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return 0
	}
}

// ComparePriority defines the total order over siblings used for
// priority-ordered views. It compares (priority, key) pairs and returns a
// negative, zero or positive result.
func ComparePriority(aPriority interface{}, aKey string, bPriority interface{}, bKey string) int {
	aClass := priorityClass(aPriority)
	bClass := priorityClass(bPriority)
	if aClass != bClass {
		return aClass - bClass
	}

	switch aClass {
	case priorityClassNumber:
		aNum := priorityNumber(aPriority)
		bNum := priorityNumber(bPriority)
		if aNum < bNum {
			return -1
		}
		if aNum > bNum {
			return 1
		}
	case priorityClassString:
		aStr := aPriority.(string)
		bStr := bPriority.(string)
		if aStr < bStr {
			return -1
		}
		if aStr > bStr {
			return 1
		}
	}

	// Tie-break by key.
	if aKey < bKey {
		return -1
	}
	if aKey > bKey {
		return 1
	}
	return 0
}

// OrderedKeys returns the child keys of an object node sorted by the
// priority order.
func OrderedKeys(node *ObjectNode) []string {
	keys := node.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		a := node.Get(keys[i])
		b := node.Get(keys[j])
		return ComparePriority(a.Priority(), keys[i], b.Priority(), keys[j]) < 0
	})
	return keys
}
