package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	OrderSale     OrderKind = "sale"
	OrderPurchase OrderKind = "purchase"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusApproved  OrderStatus = "approved"
	StatusCompleted OrderStatus = "completed"
	StatusVoid      OrderStatus = "void"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is a sale or purchase header. Its status only changes through the
// lifecycle operations of the order service.
type Order struct {
	BaseModel
	Kind          OrderKind       `gorm:"type:varchar(20);not null;index" json:"kind" validate:"required,oneof=sale purchase"`
	PartyID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"party_id" validate:"uuid_required"` // customer or supplier
	BranchID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id" validate:"uuid_required"`
	SellerID      *uuid.UUID      `gorm:"type:uuid" json:"seller_id,omitempty"`
	ReferenceNo   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_no"`
	OrderStatus   OrderStatus     `gorm:"type:varchar(20);not null;index" json:"order_status" validate:"omitempty,oneof=pending completed"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	Paid          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	VoidedAt      *time.Time      `json:"voided_at,omitempty"`
	Note          string          `json:"note,omitempty"`

	Details []OrderDetail `gorm:"foreignKey:OrderID" json:"details" validate:"required,min=1,dive"`
}

// OrderDetail is a line item, owned by its order. UnitID is the unit the
// customer ordered in; BaseUnitID and BaseQty snapshot the base-unit quantity
// the line moved the last time its stock effect was applied.
type OrderDetail struct {
	BaseModel
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	UnitID     uuid.UUID       `gorm:"type:uuid;not null" json:"unit_id" validate:"uuid_required"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Cost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	Price      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`

	BaseUnitID *uuid.UUID      `gorm:"type:uuid" json:"base_unit_id,omitempty"`
	BaseQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_qty"`
}

// Sequence is a named counter used to allocate reference numbers.
type Sequence struct {
	Name      string    `gorm:"type:varchar(50);primaryKey" json:"name"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DerivePaymentStatus fills Balance and PaymentStatus from GrandTotal and Paid.
func (o *Order) DerivePaymentStatus() {
	o.Balance = o.GrandTotal.Sub(o.Paid)
	switch {
	case o.Paid.IsZero() && o.GrandTotal.IsPositive():
		o.PaymentStatus = PaymentUnpaid
	case o.Balance.IsPositive():
		o.PaymentStatus = PaymentPartial
	default:
		o.PaymentStatus = PaymentPaid
	}
}
