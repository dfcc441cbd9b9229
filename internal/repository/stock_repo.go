package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/stock"
)

// StockRepository is the stock ledger. Methods taking tx must run inside the
// unit of work that causes the change.
type StockRepository interface {
	Create(tx *gorm.DB, row *model.Stock) error
	LockRows(tx *gorm.DB, keys []stock.Key) (map[stock.Key]model.Stock, error)
	CheckSufficient(row model.Stock, key stock.Key, requiredDebit decimal.Decimal) error
	ApplyDelta(tx *gorm.DB, key stock.Key, delta decimal.Decimal) (decimal.Decimal, error)
	Find(ctx context.Context, branchID, productID uuid.UUID) (*model.Stock, error)
	SetQuantity(tx *gorm.DB, key stock.Key, qty decimal.Decimal, updatedBy string) (*model.Stock, decimal.Decimal, error)
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) Create(tx *gorm.DB, row *model.Stock) error {
	return tx.Create(row).Error
}

// LockRows takes a row lock on every existing row in keys, in key order so
// concurrent units of work cannot deadlock each other. Keys without a row
// are absent from the result. A row is unique per (branch, product); one
// kept in another unit than key.UnitID is a UnitMappingError.
func (r *stockRepo) LockRows(tx *gorm.DB, keys []stock.Key) (map[stock.Key]model.Stock, error) {
	sorted := append([]stock.Key(nil), keys...)
	stock.SortKeys(sorted)

	rows := make(map[stock.Key]model.Stock, len(sorted))
	for _, key := range sorted {
		var row model.Stock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("branch_id = ? AND product_id = ?", key.BranchID, key.ProductID).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.UnitID != key.UnitID {
			return nil, &stock.UnitMappingError{
				ProductID: key.ProductID.String(),
				UnitID:    row.UnitID.String(),
				Reason:    fmt.Sprintf("stock is kept in this unit but the base unit is %s", key.UnitID),
			}
		}
		rows[key] = row
	}
	return rows, nil
}

// CheckSufficient fails when row holds less than requiredDebit.
func (r *stockRepo) CheckSufficient(row model.Stock, key stock.Key, requiredDebit decimal.Decimal) error {
	if row.QtySmallUnit.LessThan(requiredDebit) {
		return &stock.InsufficientStockError{Key: key, Available: row.QtySmallUnit, Required: requiredDebit}
	}
	return nil
}

// ApplyDelta adds delta to the (branch, product) row's quantity and returns
// the new balance. Callers lock the row with LockRows first, which checks
// its unit. The update only matches while the result stays non-negative, so a debit
// that would overdraw the row affects nothing and is reported as
// insufficient stock.
func (r *stockRepo) ApplyDelta(tx *gorm.DB, key stock.Key, delta decimal.Decimal) (decimal.Decimal, error) {
	result := tx.Model(&model.Stock{}).
		Where("branch_id = ? AND product_id = ?", key.BranchID, key.ProductID).
		Where("qty_small_unit + ? >= 0", delta).
		Updates(map[string]interface{}{
			"qty_small_unit": gorm.Expr("qty_small_unit + ?", delta),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return decimal.Zero, result.Error
	}

	var row model.Stock
	err := tx.Where("branch_id = ? AND product_id = ?", key.BranchID, key.ProductID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, &stock.NotFoundError{Resource: "stock for product", ID: key.ProductID.String()}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, &stock.InsufficientStockError{Key: key, Available: row.QtySmallUnit, Required: delta.Neg()}
	}
	return row.QtySmallUnit, nil
}

func (r *stockRepo) Find(ctx context.Context, branchID, productID uuid.UUID) (*model.Stock, error) {
	var row model.Stock
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &stock.NotFoundError{Resource: "stock for product", ID: productID.String()}
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SetQuantity overwrites (or creates) the row for key with qty, moving it to
// key.UnitID, and returns the row with the quantity it held before.
func (r *stockRepo) SetQuantity(tx *gorm.DB, key stock.Key, qty decimal.Decimal, updatedBy string) (*model.Stock, decimal.Decimal, error) {
	var row model.Stock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id = ?", key.BranchID, key.ProductID).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = model.Stock{BranchID: key.BranchID, ProductID: key.ProductID, UnitID: key.UnitID, QtySmallUnit: qty}
		row.CreatedBy = updatedBy
		row.UpdatedBy = updatedBy
		if err := tx.Create(&row).Error; err != nil {
			return nil, decimal.Zero, err
		}
		return &row, decimal.Zero, nil
	case err != nil:
		return nil, decimal.Zero, err
	}

	previous := row.QtySmallUnit
	err = tx.Model(&row).Updates(map[string]interface{}{
		"unit_id":        key.UnitID,
		"qty_small_unit": qty,
		"version":        gorm.Expr("version + 1"),
		"updated_by":     updatedBy,
	}).Error
	if err != nil {
		return nil, decimal.Zero, err
	}
	row.UnitID = key.UnitID
	row.QtySmallUnit = qty
	return &row, previous, nil
}
