package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is the authoritative on-hand quantity of one product in one branch,
// always expressed in the product's base unit.
type Stock struct {
	BaseModel
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_branch_product" json:"branch_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_branch_product" json:"product_id"`
	UnitID       uuid.UUID       `gorm:"type:uuid;not null" json:"unit_id"`
	QtySmallUnit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"qty_small_unit"`
	Cost         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	Price        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Version      int64           `gorm:"not null;default:0" json:"version"`
}

// StockInit sets the opening balance of a product in a branch. Qty is in
// UnitID, or in the product's base unit when UnitID is empty.
type StockInit struct {
	BranchID  uuid.UUID       `json:"branch_id" validate:"uuid_required"`
	ProductID uuid.UUID       `json:"product_id" validate:"uuid_required"`
	UnitID    uuid.UUID       `json:"unit_id"`
	Qty       decimal.Decimal `json:"qty"`
	Cost      decimal.Decimal `json:"cost"`
	Price     decimal.Decimal `json:"price"`
}

// StockAdjustment is a manual IN/OUT correction outside any order.
type StockAdjustment struct {
	BranchID  uuid.UUID         `json:"branch_id" validate:"uuid_required"`
	ProductID uuid.UUID         `json:"product_id" validate:"uuid_required"`
	UnitID    uuid.UUID         `json:"unit_id"`
	Direction MovementDirection `json:"direction" validate:"required,oneof=IN OUT"`
	Qty       decimal.Decimal   `json:"qty"`
	Note      string            `json:"note" validate:"max=255"`
}
