package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/repository"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/internal/txn"
	"github.com/stockledger/stockledger/internal/ws"
	"github.com/stockledger/stockledger/pkg/logger"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

type InventoryService interface {
	CreateProduct(ctx context.Context, req *model.Product, userID string) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	InitStock(ctx context.Context, req *model.StockInit, userID string) (*model.Stock, error)
	AdjustStock(ctx context.Context, req *model.StockAdjustment, userID string) (*model.Stock, error)
	GetStockLevel(ctx context.Context, branchID, productID uuid.UUID) (*model.Stock, error)
	ListMovements(ctx context.Context, branchID, productID uuid.UUID, limit int) ([]model.StockMovement, error)
}

type inventoryService struct {
	productRepo  repository.ProductRepository
	stockRepo    repository.StockRepository
	movementRepo repository.MovementRepository
	ledger       *Ledger
	coord        *txn.Coordinator
	wsHub        *ws.Hub
	log          *zap.Logger
}

func NewInventoryService(pRepo repository.ProductRepository, sRepo repository.StockRepository, mRepo repository.MovementRepository, ledger *Ledger, coord *txn.Coordinator, hub *ws.Hub, log *zap.Logger) InventoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &inventoryService{
		productRepo:  pRepo,
		stockRepo:    sRepo,
		movementRepo: mRepo,
		ledger:       ledger,
		coord:        coord,
		wsHub:        hub,
		log:          log,
	}
}

// CreateProduct stores a product with its conversion table. Units may be
// given by id or by name; unknown names are created. Levels are assigned
// from the multipliers, the smallest being the base unit.
func (s *inventoryService) CreateProduct(ctx context.Context, req *model.Product, userID string) (*model.Product, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	req.Code = strings.TrimSpace(req.Code)
	req.ID = uuid.New()
	req.CreatedBy = userID
	req.UpdatedBy = userID

	err := s.coord.Do(ctx, "product.create", func(sc *txn.Scope) error {
		existing, err := s.productRepo.FindByCode(sc.Tx, req.Code)
		var nf *stock.NotFoundError
		switch {
		case err == nil && existing != nil:
			return &stock.ValidationError{Field: "code", Reason: "already exists"}
		case err != nil && !errors.As(err, &nf):
			return err
		}

		for i := range req.Units {
			u := &req.Units[i]
			u.ID = uuid.Nil
			u.ProductID = req.ID
			u.CreatedBy = userID
			u.UpdatedBy = userID
			if u.UnitID != uuid.Nil {
				continue
			}
			name := strings.TrimSpace(u.UnitName)
			if name == "" {
				return &stock.ValidationError{Field: fmt.Sprintf("units[%d]", i), Reason: "needs unit_id or unit_name"}
			}
			unit, err := s.productRepo.FindOrCreateUnit(sc.Tx, name, userID)
			if err != nil {
				return fmt.Errorf("resolve unit %q: %w", name, err)
			}
			u.UnitID = unit.ID
		}
		if err := stock.AssignLevels(req.ID, req.Units); err != nil {
			return err
		}
		return s.productRepo.Create(sc.Tx, req)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("product created", zap.String("code", req.Code), zap.Int("units", len(req.Units)))
	return s.productRepo.FindByID(ctx, req.ID)
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// InitStock overwrites the branch's balance of a product with the opening
// quantity and journals the difference. It also moves a row kept in a stale
// unit onto the product's current base unit.
func (s *inventoryService) InitStock(ctx context.Context, req *model.StockInit, userID string) (*model.Stock, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Qty.IsNegative() {
		return nil, &stock.ValidationError{Field: "qty", Reason: "must not be negative"}
	}

	var row *model.Stock
	err := s.coord.Do(ctx, "stock.init", func(sc *txn.Scope) error {
		if err := s.ledger.holdProducts(sc, req.BranchID, req.ProductID); err != nil {
			return err
		}
		key, qty, err := s.ledger.resolveQty(sc, req.BranchID, req.ProductID, req.UnitID, req.Qty)
		if err != nil {
			return err
		}
		var previous decimal.Decimal
		row, previous, err = s.stockRepo.SetQuantity(sc.Tx, key, qty, userID)
		if err != nil {
			return err
		}
		if !req.Cost.IsZero() || !req.Price.IsZero() {
			if err := sc.Tx.Model(row).Updates(map[string]interface{}{"cost": req.Cost, "price": req.Price}).Error; err != nil {
				return err
			}
			row.Cost, row.Price = req.Cost, req.Price
		}

		if delta := qty.Sub(previous); !delta.IsZero() {
			tmpl := movementTemplate{Reason: model.ReasonOpening}
			if err := s.ledger.journal(sc, key, delta, qty, tmpl, userID); err != nil {
				return err
			}
		}
		sc.AfterCommit(s.publish("stock_initialized", key, qty, userID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AdjustStock applies a manual IN/OUT movement. An OUT never drives the
// balance below zero.
func (s *inventoryService) AdjustStock(ctx context.Context, req *model.StockAdjustment, userID string) (*model.Stock, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Qty.IsPositive() {
		return nil, &stock.ValidationError{Field: "qty", Reason: "must be greater than zero"}
	}

	err := s.coord.Do(ctx, "stock.adjust", func(sc *txn.Scope) error {
		if err := s.ledger.holdProducts(sc, req.BranchID, req.ProductID); err != nil {
			return err
		}
		key, qty, err := s.ledger.resolveQty(sc, req.BranchID, req.ProductID, req.UnitID, req.Qty)
		if err != nil {
			return err
		}
		delta := qty
		if req.Direction == model.MovementOut {
			delta = qty.Neg()
		}
		tmpl := movementTemplate{Reason: model.ReasonAdjustment, Note: req.Note}
		levels, err := s.ledger.applyDeltas(sc, stock.Deltas{key: delta}, tmpl, req.Direction == model.MovementIn, userID)
		if err != nil {
			return err
		}
		for _, lv := range levels {
			sc.AfterCommit(s.publish("stock_adjusted", key, lv.QtySmallUnit, userID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("stock adjusted",
		zap.Stringer("branch_id", req.BranchID),
		zap.Stringer("product_id", req.ProductID),
		zap.String("direction", string(req.Direction)),
		zap.String("qty", req.Qty.String()))
	return s.stockRepo.Find(ctx, req.BranchID, req.ProductID)
}

func (s *inventoryService) GetStockLevel(ctx context.Context, branchID, productID uuid.UUID) (*model.Stock, error) {
	return s.stockRepo.Find(ctx, branchID, productID)
}

func (s *inventoryService) ListMovements(ctx context.Context, branchID, productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	return s.movementRepo.FindByStock(ctx, branchID, productID, limit)
}

func (s *inventoryService) publish(action string, key stock.Key, qty decimal.Decimal, userID string) func() {
	ev := ws.Event{
		Type:   ws.EventStockUpdate,
		Action: action,
		Stocks: []ws.StockLevel{{BranchID: key.BranchID, ProductID: key.ProductID, UnitID: key.UnitID, QtySmallUnit: qty}},
		UserID: userID,
	}
	return func() { s.wsHub.Publish(ev) }
}
