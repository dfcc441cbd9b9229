package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/stock"
)

type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	ReferenceExists(tx *gorm.DB, referenceNo string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	UpdateHeader(tx *gorm.DB, order *model.Order, fields map[string]interface{}) error
	SaveSnapshots(tx *gorm.DB, details []model.OrderDetail) error
	Delete(tx *gorm.DB, order *model.Order, deletedBy string) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

// Create inserts the header and its line items. A unique-index collision on
// the reference number is reported as a duplicate reference.
func (r *orderRepo) Create(tx *gorm.DB, order *model.Order) error {
	err := tx.Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &stock.DuplicateReferenceError{ReferenceNo: order.ReferenceNo}
	}
	return err
}

// ReferenceExists also sees deleted orders: reference numbers are never reused.
func (r *orderRepo) ReferenceExists(tx *gorm.DB, referenceNo string) (bool, error) {
	var count int64
	err := tx.Unscoped().Model(&model.Order{}).Where("reference_no = ?", referenceNo).Count(&count).Error
	return count > 0, err
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate locks the header row for the rest of the transaction so two
// transitions of the same order serialize.
func (r *orderRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	return r.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *orderRepo) find(db *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := db.Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &stock.NotFoundError{Resource: "order", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) UpdateHeader(tx *gorm.DB, order *model.Order, fields map[string]interface{}) error {
	return tx.Model(order).Updates(fields).Error
}

func (r *orderRepo) SaveSnapshots(tx *gorm.DB, details []model.OrderDetail) error {
	for i := range details {
		err := tx.Model(&details[i]).Updates(map[string]interface{}{
			"base_unit_id": details[i].BaseUnitID,
			"base_qty":     details[i].BaseQty,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete soft-deletes the header and every line item it owns.
func (r *orderRepo) Delete(tx *gorm.DB, order *model.Order, deletedBy string) error {
	if err := tx.Model(&model.OrderDetail{}).Where("order_id = ?", order.ID).
		Update("deleted_by", deletedBy).Error; err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&model.OrderDetail{}).Error; err != nil {
		return err
	}
	if err := tx.Model(order).Update("deleted_by", deletedBy).Error; err != nil {
		return err
	}
	return tx.Delete(order).Error
}
