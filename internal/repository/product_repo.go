package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/stock"
)

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByCode(tx *gorm.DB, code string) (*model.Product, error)
	FindOrCreateUnit(tx *gorm.DB, name string, createdBy string) (*model.Unit, error)
	FindUnitsByProductIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.ProductUnit, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// Create stores the product together with its unit rows.
func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return tx.Create(product).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("level ASC") }).
		Preload("Units.Unit").
		First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &stock.NotFoundError{Resource: "product", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByCode(tx *gorm.DB, code string) (*model.Product, error) {
	var product model.Product
	err := tx.First(&product, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &stock.NotFoundError{Resource: "product", ID: code}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindOrCreateUnit(tx *gorm.DB, name string, createdBy string) (*model.Unit, error) {
	unit := model.Unit{Name: name}
	unit.CreatedBy = createdBy
	unit.UpdatedBy = createdBy
	if err := tx.Where(model.Unit{Name: name}).FirstOrCreate(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindUnitsByProductIDs loads the conversion tables of several products in
// one query. It feeds the unit hierarchy resolver.
func (r *productRepo) FindUnitsByProductIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	if len(ids) == 0 {
		return units, nil
	}
	err := tx.Where("product_id IN ?", ids).Order("product_id, level").Find(&units).Error
	return units, err
}
