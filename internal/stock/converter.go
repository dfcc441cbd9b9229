package stock

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/internal/model"
)

// Conversion is the input of a ConversionStrategy.
type Conversion struct {
	Level              int
	BaseMultiplier     decimal.Decimal
	SelectedMultiplier decimal.Decimal
	OrderedQty         decimal.Decimal

	// Hierarchy is the full table, for strategies that walk every level.
	Hierarchy Hierarchy
}

// ConversionStrategy maps an ordered quantity to base-unit quantity.
type ConversionStrategy interface {
	Name() string
	ToBase(c Conversion) decimal.Decimal
}

const (
	StrategyLegacy      = "legacy"
	StrategyTelescoping = "telescoping"
)

// LegacyLevelStrategy converts level 1 and level 2 units and passes any
// deeper level through unchanged.
//
// TODO(product): the level > 2 pass-through contradicts the level 1 and 2
// formulas; switch the default to TelescopingStrategy once the intended
// semantics for three-level products are confirmed.
type LegacyLevelStrategy struct{}

func (LegacyLevelStrategy) Name() string { return StrategyLegacy }

func (LegacyLevelStrategy) ToBase(c Conversion) decimal.Decimal {
	switch {
	case c.Level == model.BaseLevel:
		return c.OrderedQty.Mul(c.BaseMultiplier)
	case c.Level == 2:
		return c.SelectedMultiplier.Mul(c.OrderedQty)
	default:
		return c.OrderedQty
	}
}

// TelescopingStrategy multiplies through every level between the base unit
// and the selected one, each qty being relative to the next-smaller level.
// It agrees with LegacyLevelStrategy on levels 1 and 2.
type TelescopingStrategy struct{}

func (TelescopingStrategy) Name() string { return StrategyTelescoping }

func (TelescopingStrategy) ToBase(c Conversion) decimal.Decimal {
	if c.Level <= model.BaseLevel {
		return c.OrderedQty.Mul(c.BaseMultiplier)
	}
	qty := c.OrderedQty
	for _, u := range c.Hierarchy.Between(c.Level) {
		qty = qty.Mul(u.Qty)
	}
	return qty
}

// StrategyByName returns the named strategy.
func StrategyByName(name string) (ConversionStrategy, error) {
	switch name {
	case "", StrategyLegacy:
		return LegacyLevelStrategy{}, nil
	case StrategyTelescoping:
		return TelescopingStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown conversion strategy %q", name)
}

// Converter resolves units against a Hierarchy and applies a strategy.
type Converter struct {
	Strategy ConversionStrategy
}

func NewConverter(strategy ConversionStrategy) *Converter {
	if strategy == nil {
		strategy = LegacyLevelStrategy{}
	}
	return &Converter{Strategy: strategy}
}

// ToBase converts qty of unit (as configured in h) to base-unit quantity.
func (c *Converter) ToBase(h Hierarchy, unit model.ProductUnit, qty decimal.Decimal) (decimal.Decimal, error) {
	base, err := h.Base()
	if err != nil {
		return decimal.Zero, err
	}
	if !qty.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "qty", Reason: "must be greater than zero"}
	}
	return c.Strategy.ToBase(Conversion{
		Level:              unit.Level,
		BaseMultiplier:     base.Qty,
		SelectedMultiplier: unit.Qty,
		OrderedQty:         qty,
		Hierarchy:          h,
	}), nil
}

// FromBase inverts the level 1 and level 2 formulas. Deeper levels are
// returned unchanged, mirroring the legacy rule.
func FromBase(h Hierarchy, unit model.ProductUnit, baseQty decimal.Decimal) (decimal.Decimal, error) {
	base, err := h.Base()
	if err != nil {
		return decimal.Zero, err
	}
	switch unit.Level {
	case model.BaseLevel:
		if base.Qty.IsZero() {
			return decimal.Zero, &UnitMappingError{ProductID: h.ProductID.String(), Reason: "base multiplier is zero"}
		}
		return baseQty.Div(base.Qty), nil
	case 2:
		if unit.Qty.IsZero() {
			return decimal.Zero, &UnitMappingError{ProductID: h.ProductID.String(), Reason: "unit multiplier is zero"}
		}
		return baseQty.Div(unit.Qty), nil
	default:
		return baseQty, nil
	}
}
