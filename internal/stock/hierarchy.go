package stock

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/internal/model"
)

// Hierarchy is a product's conversion table ordered by level, base unit first.
type Hierarchy struct {
	ProductID uuid.UUID
	Units     []model.ProductUnit
}

// NewHierarchy orders rows by level and checks that a base unit exists.
// Rows of other products are ignored.
func NewHierarchy(productID uuid.UUID, rows []model.ProductUnit) (Hierarchy, error) {
	h := Hierarchy{ProductID: productID}
	for _, row := range rows {
		if row.ProductID == productID {
			h.Units = append(h.Units, row)
		}
	}
	sort.SliceStable(h.Units, func(i, j int) bool { return h.Units[i].Level < h.Units[j].Level })
	if _, err := h.Base(); err != nil {
		return Hierarchy{}, err
	}
	return h, nil
}

// Base returns the level-1 row.
func (h Hierarchy) Base() (model.ProductUnit, error) {
	for _, u := range h.Units {
		if u.Level == model.BaseLevel {
			return u, nil
		}
	}
	return model.ProductUnit{}, &NotFoundError{Resource: "base unit of product", ID: h.ProductID.String()}
}

// Find returns the row configured for unitID.
func (h Hierarchy) Find(unitID uuid.UUID) (model.ProductUnit, error) {
	for _, u := range h.Units {
		if u.UnitID == unitID {
			return u, nil
		}
	}
	return model.ProductUnit{}, &UnitMappingError{
		ProductID: h.ProductID.String(),
		UnitID:    unitID.String(),
		Reason:    "unit is not configured for this product",
	}
}

// Between returns the rows with base < level <= upTo, lowest level first.
func (h Hierarchy) Between(upTo int) []model.ProductUnit {
	var out []model.ProductUnit
	for _, u := range h.Units {
		if u.Level > model.BaseLevel && u.Level <= upTo {
			out = append(out, u)
		}
	}
	return out
}

// AssignLevels validates a product's unit configuration and sets each row's
// Level as a dense rank of its multiplier, 1 for the smallest.
func AssignLevels(productID uuid.UUID, units []model.ProductUnit) error {
	if len(units) == 0 {
		return &UnitMappingError{ProductID: productID.String(), Reason: "no units configured"}
	}
	if len(units) > model.MaxProductUnits {
		return &UnitMappingError{
			ProductID: productID.String(),
			Reason:    fmt.Sprintf("at most %d units may be configured, got %d", model.MaxProductUnits, len(units)),
		}
	}

	seen := make(map[uuid.UUID]bool, len(units))
	qtys := make([]decimal.Decimal, 0, len(units))
	for _, u := range units {
		if !u.Qty.IsPositive() {
			return &ValidationError{Field: "units.qty", Reason: "must be greater than zero"}
		}
		if seen[u.UnitID] {
			return &UnitMappingError{ProductID: productID.String(), UnitID: u.UnitID.String(), Reason: "unit configured twice"}
		}
		seen[u.UnitID] = true
		qtys = append(qtys, u.Qty)
	}

	sort.Slice(qtys, func(i, j int) bool { return qtys[i].LessThan(qtys[j]) })
	for i := 1; i < len(qtys); i++ {
		// equal multipliers would share a level, and two base units are ambiguous
		if qtys[i].Equal(qtys[i-1]) {
			return &UnitMappingError{ProductID: productID.String(), Reason: "two units share the same multiplier"}
		}
	}

	for i := range units {
		for rank, q := range qtys {
			if units[i].Qty.Equal(q) {
				units[i].Level = rank + 1
				break
			}
		}
	}
	return nil
}
