package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxProductUnits caps how many packaging units a product may configure.
const MaxProductUnits = 3

// BaseLevel is the level of a product's smallest (base) unit.
const BaseLevel = 1

// Unit is a named unit of measure shared across products (piece, box, case).
type Unit struct {
	BaseModel
	Name string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required"`
}

type Product struct {
	BaseModel
	Code  string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required"`
	Title string        `gorm:"type:varchar(255);not null" json:"title" validate:"required"`
	Units []ProductUnit `gorm:"foreignKey:ProductID" json:"units" validate:"required,min=1,max=3,dive"`
}

// ProductUnit is one row of a product's conversion table. Qty is the unit's
// multiplier and Level its dense rank, 1 being the base unit.
type ProductUnit struct {
	BaseModel
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_unit" json:"product_id"`
	UnitID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_unit" json:"unit_id"`
	Unit           *Unit           `gorm:"foreignKey:UnitID" json:"unit,omitempty" validate:"-"`
	Qty            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Cost           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	Price          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	WholeSalePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"whole_sale_price"`
	Level          int             `gorm:"not null" json:"level"`

	// UnitName is accepted on input so callers can reference units by name.
	UnitName string `gorm:"-" json:"unit_name,omitempty"`
}
