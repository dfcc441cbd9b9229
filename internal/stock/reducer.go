package stock

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the sign of a stock effect.
type Direction int

const (
	Debit  Direction = -1
	Credit Direction = 1
)

func (d Direction) String() string {
	if d == Debit {
		return "debit"
	}
	return "credit"
}

// Opposite returns the direction that undoes d.
func (d Direction) Opposite() Direction { return -d }

// Line is the reducer's view of an order line item.
type Line struct {
	ProductID uuid.UUID
	UnitID    uuid.UUID
	Qty       decimal.Decimal

	// Snapshot of a previously applied effect. When set and the reducer is
	// asked to honour snapshots, the conversion table is not consulted.
	BaseUnitID *uuid.UUID
	BaseQty    decimal.Decimal
}

// Resolved is a line normalized to its base unit.
type Resolved struct {
	Key     Key
	BaseQty decimal.Decimal
}

// Reducer normalizes lines to base units and nets them per Stock row.
type Reducer struct {
	Converter *Converter
}

func NewReducer(c *Converter) *Reducer {
	return &Reducer{Converter: c}
}

// Reduce converts every line to base-unit quantity and sums the signed
// result per (branch, product, base unit). resolved[i] belongs to lines[i].
// hierarchies must hold an entry for every product referenced by lines.
func (r *Reducer) Reduce(branchID uuid.UUID, lines []Line, hierarchies map[uuid.UUID]Hierarchy, dir Direction, useSnapshot bool) (Deltas, []Resolved, error) {
	deltas := make(Deltas, len(lines))
	resolved := make([]Resolved, len(lines))
	sign := decimal.NewFromInt(int64(dir))

	for i, line := range lines {
		res, err := r.resolve(branchID, line, hierarchies, useSnapshot)
		if err != nil {
			return nil, nil, err
		}
		resolved[i] = res
		deltas[res.Key] = deltas[res.Key].Add(res.BaseQty.Mul(sign))
	}
	return deltas, resolved, nil
}

func (r *Reducer) resolve(branchID uuid.UUID, line Line, hierarchies map[uuid.UUID]Hierarchy, useSnapshot bool) (Resolved, error) {
	if useSnapshot && line.BaseUnitID != nil && line.BaseQty.IsPositive() {
		return Resolved{
			Key:     Key{BranchID: branchID, ProductID: line.ProductID, UnitID: *line.BaseUnitID},
			BaseQty: line.BaseQty,
		}, nil
	}

	h, ok := hierarchies[line.ProductID]
	if !ok {
		return Resolved{}, &NotFoundError{Resource: "product", ID: line.ProductID.String()}
	}
	base, err := h.Base()
	if err != nil {
		return Resolved{}, err
	}
	unit, err := h.Find(line.UnitID)
	if err != nil {
		return Resolved{}, err
	}
	qty, err := r.Converter.ToBase(h, unit, line.Qty)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Key:     Key{BranchID: branchID, ProductID: line.ProductID, UnitID: base.UnitID},
		BaseQty: qty,
	}, nil
}
