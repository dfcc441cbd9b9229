package stock

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies one Stock row: a product's base unit in one branch.
type Key struct {
	BranchID  uuid.UUID
	ProductID uuid.UUID
	UnitID    uuid.UUID
}

// Less orders keys so every unit of work locks rows in the same sequence.
func (k Key) Less(o Key) bool {
	if c := bytes.Compare(k.BranchID[:], o.BranchID[:]); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(k.ProductID[:], o.ProductID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(k.UnitID[:], o.UnitID[:]) < 0
}

// GuardName is the name a keyed guard is taken under. Stock rows are unique
// per (branch, product), so the unit is left out.
func (k Key) GuardName() string {
	return "stock:" + k.BranchID.String() + ":" + k.ProductID.String()
}

// Deltas maps each touched Stock row to its signed net change
// (positive restocks, negative consumes).
type Deltas map[Key]decimal.Decimal

// Keys returns the touched keys in lock order.
func (d Deltas) Keys() []Key {
	keys := make([]Key, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Debits returns the keys whose net delta is negative, in lock order.
func (d Deltas) Debits() []Key {
	var keys []Key
	for _, k := range d.Keys() {
		if d[k].IsNegative() {
			keys = append(keys, k)
		}
	}
	return keys
}

// Negate returns the deltas with every sign flipped.
func (d Deltas) Negate() Deltas {
	out := make(Deltas, len(d))
	for k, v := range d {
		out[k] = v.Neg()
	}
	return out
}

func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
