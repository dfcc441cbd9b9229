package service

import (
	"fmt"

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
)

// Ledger applies stock effects inside a unit of work. It is shared by the
// order and inventory services so every stock change follows one protocol.
type Ledger struct {
	products  repository.ProductRepository
	stocks    repository.StockRepository
	movements repository.MovementRepository
	reducer   *stock.Reducer
	metrics   *metrics.Metrics
	log       *zap.Logger

	// createOnCredit creates a missing stock row when a reversal credits it
	// instead of skipping the credit.
	createOnCredit bool
}

type LedgerOptions struct {
	Converter      *stock.Converter
	CreateOnCredit bool
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

func NewLedger(products repository.ProductRepository, stocks repository.StockRepository, movements repository.MovementRepository, opts LedgerOptions) *Ledger {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Ledger{
		products:       products,
		stocks:         stocks,
		movements:      movements,
		reducer:        stock.NewReducer(opts.Converter),
		metrics:        opts.Metrics,
		log:            opts.Logger,
		createOnCredit: opts.CreateOnCredit,
	}
}

// hierarchies resolves the conversion table of every product in ids.
func (l *Ledger) hierarchies(s *txn.Scope, ids []uuid.UUID) (map[uuid.UUID]stock.Hierarchy, error) {
	rows, err := l.products.FindUnitsByProductIDs(s.Tx, ids)
	if err != nil {
		return nil, fmt.Errorf("load product units: %w", err)
	}
	out := make(map[uuid.UUID]stock.Hierarchy, len(ids))
	for _, id := range ids {
		h, err := stock.NewHierarchy(id, rows)
		if err != nil {
			return nil, err
		}
		out[id] = h
	}
	return out, nil
}

// holdProducts takes the stock guards of productIDs in branchID. Units of
// work call it before their first read, so an operation waiting for a guard
// holds no database lock that the current holder needs.
func (l *Ledger) holdProducts(s *txn.Scope, branchID uuid.UUID, productIDs ...uuid.UUID) error {
	keys := make([]stock.Key, len(productIDs))
	for i, id := range productIDs {
		keys[i] = stock.Key{BranchID: branchID, ProductID: id}
	}
	return s.Hold(keys...)
}

func orderProductIDs(order *model.Order) []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, d := range order.Details {
		if !seen[d.ProductID] {
			seen[d.ProductID] = true
			ids = append(ids, d.ProductID)
		}
	}
	return ids
}

// applyOrderEffect moves the stock of every line of order in direction dir.
// Lines are converted to base units and netted per stock row first; every
// debit is checked before any row is written, so either all lines apply or
// the returned error leaves the ledger untouched. On success each detail
// carries the base-unit snapshot of what it moved.
func (l *Ledger) applyOrderEffect(s *txn.Scope, order *model.Order, dir stock.Direction, fromSnapshot bool, createMissing bool, actor string) ([]ws.StockLevel, error) {
	lines := make([]stock.Line, len(order.Details))
	for i, d := range order.Details {
		lines[i] = stock.Line{
			ProductID:  d.ProductID,
			UnitID:     d.UnitID,
			Qty:        d.Qty,
			BaseUnitID: d.BaseUnitID,
			BaseQty:    d.BaseQty,
		}
	}
	productIDs := orderProductIDs(order)
	if err := l.holdProducts(s, order.BranchID, productIDs...); err != nil {
		return nil, err
	}

	hierarchies, err := l.hierarchies(s, productIDs)
	if err != nil {
		return nil, err
	}
	deltas, resolved, err := l.reducer.Reduce(order.BranchID, lines, hierarchies, dir, fromSnapshot)
	if err != nil {
		return nil, err
	}

	reason := model.ReasonOrderComplete
	if fromSnapshot {
		reason = model.ReasonOrderReverse
	}
	orderID := order.ID
	levels, err := l.applyDeltas(s, deltas, movementTemplate{OrderID: &orderID, Reason: reason, Note: order.ReferenceNo}, createMissing || l.createOnCredit, actor)
	if err != nil {
		return nil, err
	}

	for i := range order.Details {
		unitID := resolved[i].Key.UnitID
		order.Details[i].BaseUnitID = &unitID
		order.Details[i].BaseQty = resolved[i].BaseQty
	}
	return levels, nil
}

type movementTemplate struct {
	OrderID *uuid.UUID
	Reason  string
	Note    string
}

// applyDeltas runs the two-pass protocol over deltas: lock every row in key
// order, check every debit, then apply and journal every non-zero delta.
func (l *Ledger) applyDeltas(s *txn.Scope, deltas stock.Deltas, tmpl movementTemplate, createMissing bool, actor string) ([]ws.StockLevel, error) {
	log := logger.FromContext(s.Ctx, l.log)
	keys := deltas.Keys()
	if err := s.Hold(keys...); err != nil {
		return nil, err
	}
	rows, err := l.stocks.LockRows(s.Tx, keys)
	if err != nil {
		return nil, fmt.Errorf("lock stock rows: %w", err)
	}

	for _, key := range deltas.Debits() {
		row, ok := rows[key]
		if !ok {
			return nil, &stock.NotFoundError{Resource: "stock for product", ID: key.ProductID.String()}
		}
		if err := l.stocks.CheckSufficient(row, key, deltas[key].Neg()); err != nil {
			l.metrics.IncInsufficientStock()
			return nil, err
		}
	}

	levels := make([]ws.StockLevel, 0, len(keys))
	for _, key := range keys {
		delta := deltas[key]
		if delta.IsZero() {
			continue
		}
		if _, ok := rows[key]; !ok {
			if !createMissing {
				log.Warn("credit to missing stock row skipped",
					zap.Stringer("branch_id", key.BranchID),
					zap.Stringer("product_id", key.ProductID),
					zap.String("qty", delta.String()))
				continue
			}
			row := model.Stock{BranchID: key.BranchID, ProductID: key.ProductID, UnitID: key.UnitID}
			row.CreatedBy = actor
			row.UpdatedBy = actor
			if err := l.stocks.Create(s.Tx, &row); err != nil {
				return nil, fmt.Errorf("create stock row: %w", err)
			}
		}

		balance, err := l.stocks.ApplyDelta(s.Tx, key, delta)
		if err != nil {
			return nil, err
		}
		if err := l.journal(s, key, delta, balance, tmpl, actor); err != nil {
			return nil, err
		}
		levels = append(levels, ws.StockLevel{
			BranchID: key.BranchID, ProductID: key.ProductID, UnitID: key.UnitID, QtySmallUnit: balance,
		})
	}
	return levels, nil
}

func (l *Ledger) journal(s *txn.Scope, key stock.Key, delta, balance decimal.Decimal, tmpl movementTemplate, actor string) error {
	m := model.StockMovement{
		BranchID:     key.BranchID,
		ProductID:    key.ProductID,
		UnitID:       key.UnitID,
		OrderID:      tmpl.OrderID,
		Direction:    model.MovementIn,
		Qty:          delta.Abs(),
		BalanceAfter: balance,
		Reason:       tmpl.Reason,
		Note:         tmpl.Note,
	}
	if delta.IsNegative() {
		m.Direction = model.MovementOut
	}
	m.CreatedBy = actor
	m.UpdatedBy = actor
	if err := l.movements.Create(s.Tx, &m); err != nil {
		return fmt.Errorf("journal stock movement: %w", err)
	}
	return nil
}

// resolveQty converts qty of unitID to the product's base unit. An empty
// unitID means qty is already in the base unit.
func (l *Ledger) resolveQty(s *txn.Scope, branchID, productID, unitID uuid.UUID, qty decimal.Decimal) (stock.Key, decimal.Decimal, error) {
	hierarchies, err := l.hierarchies(s, []uuid.UUID{productID})
	if err != nil {
		return stock.Key{}, decimal.Zero, err
	}
	h := hierarchies[productID]
	base, err := h.Base()
	if err != nil {
		return stock.Key{}, decimal.Zero, err
	}
	key := stock.Key{BranchID: branchID, ProductID: productID, UnitID: base.UnitID}
	if unitID == uuid.Nil {
		return key, qty, nil
	}
	unit, err := h.Find(unitID)
	if err != nil {
		return stock.Key{}, decimal.Zero, err
	}
	if qty.IsZero() {
		return key, qty, nil
	}
	baseQty, err := l.reducer.Converter.ToBase(h, unit, qty)
	if err != nil {
		return stock.Key{}, decimal.Zero, err
	}
	return key, baseQty, nil
}
