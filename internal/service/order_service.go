package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockledger/stockledger/internal/metrics"
	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/repository"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/internal/txn"
	"github.com/stockledger/stockledger/internal/ws"
	"github.com/stockledger/stockledger/pkg/logger"
	"github.com/stockledger/stockledger/pkg/validator"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req *model.Order, userID string) (*model.Order, error)
	Approve(ctx context.Context, id uuid.UUID, userID string) (*model.Order, error)
	ApproveAndComplete(ctx context.Context, id uuid.UUID, dueDate *time.Time, userID string) (*model.Order, error)
	VoidOrder(ctx context.Context, id uuid.UUID, userID string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID, userID string) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrderMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error)
}

type orderService struct {
	orders    repository.OrderRepository
	movements repository.MovementRepository
	sequences repository.SequenceRepository
	ledger    *Ledger
	coord     *txn.Coordinator
	wsHub     *ws.Hub
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, movements repository.MovementRepository, sequences repository.SequenceRepository, ledger *Ledger, coord *txn.Coordinator, hub *ws.Hub, m *metrics.Metrics, log *zap.Logger) OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &orderService{
		orders:    orders,
		movements: movements,
		sequences: sequences,
		ledger:    ledger,
		coord:     coord,
		wsHub:     hub,
		metrics:   m,
		log:       log,
	}
}

var referencePrefix = map[model.OrderKind]string{
	model.OrderSale:     "SO",
	model.OrderPurchase: "PO",
}

// validateStruct reports the first failed rule as a ValidationError.
func validateStruct(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &stock.ValidationError{Field: errs[0].FailedField, Reason: errs[0].Message()}
	}
	return nil
}

func (s *orderService) CreateOrder(ctx context.Context, req *model.Order, userID string) (created *model.Order, err error) {
	defer func() { s.metrics.ObserveTransition(string(req.Kind), string(ActionCreate), err) }()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	for i, d := range req.Details {
		if !d.Qty.IsPositive() {
			return nil, &stock.ValidationError{Field: fmt.Sprintf("details[%d].qty", i), Reason: "must be greater than zero"}
		}
	}
	tr, err := planTransition(req, ActionCreate)
	if err != nil {
		return nil, err
	}

	// req is left as the caller passed it; the stored order is a copy.
	copied := *req
	copied.Details = append([]model.OrderDetail(nil), req.Details...)
	order := &copied

	order.ReferenceNo = strings.TrimSpace(order.ReferenceNo)
	if order.ReferenceNo == "" {
		// Allocated in its own short transaction; a number burnt by a
		// failed create is never handed out again.
		n, err := s.sequences.Next(ctx, string(order.Kind))
		if err != nil {
			return nil, fmt.Errorf("allocate reference number: %w", err)
		}
		order.ReferenceNo = fmt.Sprintf("%s-%06d", referencePrefix[order.Kind], n)
	}

	order.ID = uuid.New()
	order.OrderStatus = tr.next
	order.CreatedBy = userID
	order.UpdatedBy = userID
	order.DerivePaymentStatus()
	if tr.next == model.StatusCompleted {
		now := time.Now().UTC()
		order.CompletedAt = &now
	}
	for i := range order.Details {
		order.Details[i].ID = uuid.Nil
		order.Details[i].BaseUnitID = nil
		order.Details[i].BaseQty = decimal.Zero
		order.Details[i].CreatedBy = userID
		order.Details[i].UpdatedBy = userID
	}

	dir, moves := tr.effect.direction(order.Kind)
	err = s.coord.Do(ctx, "order.create", func(sc *txn.Scope) error {
		if moves {
			if err := s.ledger.holdProducts(sc, order.BranchID, orderProductIDs(order)...); err != nil {
				return err
			}
		}
		exists, err := s.orders.ReferenceExists(sc.Tx, order.ReferenceNo)
		if err != nil {
			return err
		}
		if exists {
			return &stock.DuplicateReferenceError{ReferenceNo: order.ReferenceNo}
		}

		var levels []ws.StockLevel
		if moves {
			levels, err = s.ledger.applyOrderEffect(sc, order, dir, false, true, userID)
			if err != nil {
				return err
			}
		}
		if err := s.orders.Create(sc.Tx, order); err != nil {
			return err
		}
		sc.AfterCommit(s.publish(order, ActionCreate, levels, userID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("order created",
		zap.String("reference_no", order.ReferenceNo),
		zap.String("kind", string(order.Kind)),
		zap.String("status", string(order.OrderStatus)))
	return order, nil
}

func (s *orderService) Approve(ctx context.Context, id uuid.UUID, userID string) (*model.Order, error) {
	return s.transition(ctx, id, ActionApprove, userID, nil)
}

func (s *orderService) ApproveAndComplete(ctx context.Context, id uuid.UUID, dueDate *time.Time, userID string) (*model.Order, error) {
	return s.transition(ctx, id, ActionComplete, userID, func(o *model.Order, fields map[string]interface{}) {
		now := time.Now().UTC()
		o.CompletedAt = &now
		fields["completed_at"] = now
		if dueDate != nil {
			o.DueDate = dueDate
			fields["due_date"] = *dueDate
		}
	})
}

func (s *orderService) VoidOrder(ctx context.Context, id uuid.UUID, userID string) (*model.Order, error) {
	return s.transition(ctx, id, ActionVoid, userID, func(o *model.Order, fields map[string]interface{}) {
		now := time.Now().UTC()
		o.VoidedAt = &now
		fields["voided_at"] = now
	})
}

// transition runs action on the order under a row lock. mutate adds
// action-specific header fields.
func (s *orderService) transition(ctx context.Context, id uuid.UUID, action Action, userID string, mutate func(*model.Order, map[string]interface{})) (*model.Order, error) {
	var order *model.Order
	var from model.OrderStatus

	err := s.coord.Do(ctx, "order."+string(action), func(sc *txn.Scope) error {
		var err error
		order, err = s.orders.FindForUpdate(sc.Tx, id)
		if err != nil {
			return err
		}
		from = order.OrderStatus
		tr, err := planTransition(order, action)
		if err != nil {
			return err
		}

		var levels []ws.StockLevel
		if dir, ok := tr.effect.direction(order.Kind); ok {
			fromSnapshot := tr.effect == effectReverse
			levels, err = s.ledger.applyOrderEffect(sc, order, dir, fromSnapshot, !fromSnapshot, userID)
			if err != nil {
				return err
			}
			if err := s.orders.SaveSnapshots(sc.Tx, order.Details); err != nil {
				return err
			}
		}

		order.OrderStatus = tr.next
		order.UpdatedBy = userID
		fields := map[string]interface{}{
			"order_status": tr.next,
			"updated_by":   userID,
		}
		if mutate != nil {
			mutate(order, fields)
		}
		if err := s.orders.UpdateHeader(sc.Tx, order, fields); err != nil {
			return err
		}
		sc.AfterCommit(s.publish(order, action, levels, userID))
		return nil
	})
	if order != nil {
		s.metrics.ObserveTransition(string(order.Kind), string(action), err)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("order transitioned",
		zap.String("reference_no", order.ReferenceNo),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(order.OrderStatus)))
	return order, nil
}

// DeleteOrder reverses whatever stock effect the order currently holds and
// soft-deletes it with its lines. Its reference number stays reserved.
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID, userID string) error {
	var order *model.Order
	err := s.coord.Do(ctx, "order.delete", func(sc *txn.Scope) error {
		var err error
		order, err = s.orders.FindForUpdate(sc.Tx, id)
		if err != nil {
			return err
		}
		tr, err := planTransition(order, ActionDelete)
		if err != nil {
			return err
		}

		var levels []ws.StockLevel
		if dir, ok := tr.effect.direction(order.Kind); ok {
			levels, err = s.ledger.applyOrderEffect(sc, order, dir, true, false, userID)
			if err != nil {
				return err
			}
		}
		if err := s.orders.Delete(sc.Tx, order, userID); err != nil {
			return err
		}
		sc.AfterCommit(s.publish(order, ActionDelete, levels, userID))
		return nil
	})
	if order != nil {
		s.metrics.ObserveTransition(string(order.Kind), string(ActionDelete), err)
	}
	if err != nil {
		return err
	}

	logger.FromContext(ctx, s.log).Info("order deleted", zap.String("reference_no", order.ReferenceNo))
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// ListOrderMovements returns the journal entries an order caused, oldest
// first. Entries of a deleted order remain readable.
func (s *orderService) ListOrderMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error) {
	return s.movements.FindByOrder(ctx, id)
}

func (s *orderService) publish(order *model.Order, action Action, levels []ws.StockLevel, userID string) func() {
	id := order.ID
	ev := ws.Event{
		Type:        ws.EventOrderUpdate,
		Action:      string(action),
		OrderID:     &id,
		ReferenceNo: order.ReferenceNo,
		Status:      string(order.OrderStatus),
		Stocks:      levels,
		UserID:      userID,
	}
	return func() { s.wsHub.Publish(ev) }
}
