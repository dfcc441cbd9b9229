package database

import (
	"gorm.io/gorm"

	"github.com/stockledger/stockledger/internal/model"
)

// Models lists every table owned by the service.
var Models = []interface{}{
	&model.Unit{},
	&model.Product{},
	&model.ProductUnit{},
	&model.Stock{},
	&model.StockMovement{},
	&model.Order{},
	&model.OrderDetail{},
	&model.Sequence{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
