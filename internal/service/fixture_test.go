package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/stockledger/stockledger/internal/lock"
	"github.com/stockledger/stockledger/internal/metrics"
	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/repository"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/internal/testutil"
	"github.com/stockledger/stockledger/internal/txn"
	"github.com/stockledger/stockledger/internal/ws"
)

type fixtureOptions struct {
	strategy       stock.ConversionStrategy
	createOnCredit bool
	timeout        time.Duration
	log            *zap.Logger

	// conns > 1 opens a pooled database so units of work really overlap.
	conns      int
	wrapStocks func(repository.StockRepository) repository.StockRepository
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	locker    *lock.KeyedMutex
	hub       *ws.Hub
	orders    OrderService
	inventory InventoryService
	movements repository.MovementRepository
	branch    uuid.UUID
}

func newFixture(t *testing.T, opts ...func(*fixtureOptions)) *fixture {
	t.Helper()
	o := fixtureOptions{timeout: 10 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zaptest.NewLogger(t)
	}

	var db *gorm.DB
	if o.conns > 1 {
		db = testutil.NewPooledDB(t, o.conns)
	} else {
		db = testutil.NewDB(t)
	}
	products := repository.NewProductRepo(db)
	stocks := repository.NewStockRepo(db)
	if o.wrapStocks != nil {
		stocks = o.wrapStocks(stocks)
	}
	movements := repository.NewMovementRepo(db)
	m := metrics.New()
	locker := lock.NewKeyedMutex()
	hub := ws.NewHub(o.log)

	coord := txn.New(db, txn.Options{Timeout: o.timeout, MaxRetries: 3, Locker: locker, Logger: o.log, Metrics: m})
	ledger := NewLedger(products, stocks, movements, LedgerOptions{
		Converter:      stock.NewConverter(o.strategy),
		CreateOnCredit: o.createOnCredit,
		Metrics:        m,
		Logger:         o.log,
	})

	return &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		locker:    locker,
		hub:       hub,
		orders:    NewOrderService(repository.NewOrderRepo(db), movements, repository.NewSequenceRepo(db, 20), ledger, coord, hub, m, o.log),
		inventory: NewInventoryService(products, stocks, movements, ledger, coord, hub, o.log),
		movements: movements,
		branch:    uuid.New(),
	}
}

type unitDef struct {
	name string
	qty  int64
}

func (f *fixture) product(code string, units ...unitDef) *model.Product {
	f.t.Helper()
	req := &model.Product{Code: code, Title: code}
	for _, u := range units {
		req.Units = append(req.Units, model.ProductUnit{UnitName: u.name, Qty: decimal.NewFromInt(u.qty)})
	}
	p, err := f.inventory.CreateProduct(f.ctx, req, "tester")
	require.NoError(f.t, err)
	return p
}

func (f *fixture) unitID(p *model.Product, name string) uuid.UUID {
	f.t.Helper()
	for _, u := range p.Units {
		if u.Unit != nil && u.Unit.Name == name {
			return u.UnitID
		}
	}
	f.t.Fatalf("product %s has no unit %q", p.Code, name)
	return uuid.Nil
}

func (f *fixture) seed(p *model.Product, qty int64) {
	f.t.Helper()
	_, err := f.inventory.InitStock(f.ctx, &model.StockInit{
		BranchID: f.branch, ProductID: p.ID, Qty: decimal.NewFromInt(qty),
	}, "tester")
	require.NoError(f.t, err)
}

func (f *fixture) level(p *model.Product) decimal.Decimal {
	f.t.Helper()
	row, err := f.inventory.GetStockLevel(f.ctx, f.branch, p.ID)
	require.NoError(f.t, err)
	return row.QtySmallUnit
}

func (f *fixture) line(p *model.Product, unit string, qty int64) model.OrderDetail {
	return model.OrderDetail{ProductID: p.ID, UnitID: f.unitID(p, unit), Qty: decimal.NewFromInt(qty)}
}

func (f *fixture) newOrder(kind model.OrderKind, status model.OrderStatus, lines ...model.OrderDetail) *model.Order {
	return &model.Order{
		Kind:        kind,
		PartyID:     uuid.New(),
		BranchID:    f.branch,
		OrderStatus: status,
		GrandTotal:  decimal.NewFromInt(100),
		Details:     lines,
	}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
