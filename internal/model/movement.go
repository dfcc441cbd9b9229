package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "IN"
	MovementOut MovementDirection = "OUT"
)

// Movement reasons recorded on the journal.
const (
	ReasonOrderComplete = "order_complete"
	ReasonOrderReverse  = "order_reverse"
	ReasonAdjustment    = "adjustment"
	ReasonOpening       = "opening"
)

// StockMovement is one append-only journal entry of a delta applied to a
// Stock row. It is written in the same transaction as the delta itself.
type StockMovement struct {
	BaseModel
	BranchID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_key" json:"branch_id"`
	ProductID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_key" json:"product_id"`
	UnitID       uuid.UUID         `gorm:"type:uuid;not null" json:"unit_id"`
	OrderID      *uuid.UUID        `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Direction    MovementDirection `gorm:"type:varchar(10);not null" json:"direction"`
	Qty          decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"qty"`
	BalanceAfter decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Reason       string            `gorm:"type:varchar(30);not null" json:"reason"`
	Note         string            `json:"note,omitempty"`
}
