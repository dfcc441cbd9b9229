package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/internal/testutil"
)

func seedStock(t *testing.T, db *gorm.DB, qty int64) stock.Key {
	t.Helper()
	key := stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}
	row := model.Stock{BranchID: key.BranchID, ProductID: key.ProductID, UnitID: key.UnitID, QtySmallUnit: decimal.NewFromInt(qty)}
	require.NoError(t, NewStockRepo(db).Create(db, &row))
	return key
}

func TestStockRepo_ApplyDelta(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	key := seedStock(t, db, 100)

	balance, err := repo.ApplyDelta(db, key, decimal.NewFromInt(-30))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(70)), "balance %s", balance)

	balance, err = repo.ApplyDelta(db, key, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(75)))

	row, err := repo.Find(context.Background(), key.BranchID, key.ProductID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), row.Version)
}

func TestStockRepo_ApplyDeltaNeverOverdraws(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	key := seedStock(t, db, 5)

	_, err := repo.ApplyDelta(db, key, decimal.NewFromInt(-10))
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(decimal.NewFromInt(5)))
	assert.True(t, insufficient.Required.Equal(decimal.NewFromInt(10)))

	row, err := repo.Find(context.Background(), key.BranchID, key.ProductID)
	require.NoError(t, err)
	assert.True(t, row.QtySmallUnit.Equal(decimal.NewFromInt(5)))
}

func TestStockRepo_ApplyDeltaMissingRow(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewStockRepo(db).ApplyDelta(db, stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}, decimal.NewFromInt(-1))

	var nf *stock.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStockRepo_LockRowsAndCheck(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	k1 := seedStock(t, db, 10)
	k2 := seedStock(t, db, 3)
	missing := stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.LockRows(tx, []stock.Key{k2, missing, k1})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		_, ok := rows[missing]
		assert.False(t, ok)

		assert.NoError(t, repo.CheckSufficient(rows[k1], k1, decimal.NewFromInt(10)))
		assert.Error(t, repo.CheckSufficient(rows[k2], k2, decimal.NewFromInt(4)))
		return nil
	})
	require.NoError(t, err)
}

func TestStockRepo_SetQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	key := stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}

	row, previous, err := repo.SetQuantity(db, key, decimal.NewFromInt(12), "tester")
	require.NoError(t, err)
	assert.True(t, row.QtySmallUnit.Equal(decimal.NewFromInt(12)))
	assert.True(t, previous.IsZero())

	row, previous, err = repo.SetQuantity(db, key, decimal.NewFromInt(40), "tester")
	require.NoError(t, err)
	assert.True(t, row.QtySmallUnit.Equal(decimal.NewFromInt(40)))
	assert.True(t, previous.Equal(decimal.NewFromInt(12)))

	found, err := repo.Find(context.Background(), key.BranchID, key.ProductID)
	require.NoError(t, err)
	assert.True(t, found.QtySmallUnit.Equal(decimal.NewFromInt(40)))
}

func TestStockRepo_FindMissing(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewStockRepo(db).Find(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, stock.CodeNotFound, stock.CodeOf(err))
}

// newMockStockRepo runs the ledger against the postgres dialector so the
// emitted SQL can be asserted.
func newMockStockRepo(t *testing.T) (StockRepository, *gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStockRepo(gormDB), gormDB, mock
}

func TestStockRepo_PostgresLocksRowsForUpdate(t *testing.T) {
	repo, db, mock := newMockStockRepo(t)
	key := stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}

	rows := sqlmock.NewRows([]string{"id", "branch_id", "product_id", "unit_id", "qty_small_unit"}).
		AddRow(uuid.NewString(), key.BranchID.String(), key.ProductID.String(), key.UnitID.String(), "40")
	mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE .*branch_id.* FOR UPDATE`).WillReturnRows(rows)

	locked, err := repo.LockRows(db, []stock.Key{key})
	require.NoError(t, err)
	assert.True(t, locked[key].QtySmallUnit.Equal(decimal.NewFromInt(40)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepo_PostgresGuardedUpdate(t *testing.T) {
	repo, db, mock := newMockStockRepo(t)
	key := stock.Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}

	mock.ExpectExec(`UPDATE "stocks" SET .*qty_small_unit"=qty_small_unit \+ .* WHERE .*qty_small_unit \+ .* >= 0`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "branch_id", "product_id", "unit_id", "qty_small_unit"}).
		AddRow(uuid.NewString(), key.BranchID.String(), key.ProductID.String(), key.UnitID.String(), "2")
	mock.ExpectQuery(`SELECT \* FROM "stocks"`).WillReturnRows(rows)

	_, err := repo.ApplyDelta(db, key, decimal.NewFromInt(-3))
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepo_LockRowsRejectsRowInOtherUnit(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	stored := seedStock(t, db, 10)
	key := stock.Key{BranchID: stored.BranchID, ProductID: stored.ProductID, UnitID: uuid.New()}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.LockRows(tx, []stock.Key{key})
		return err
	})
	var mapping *stock.UnitMappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, stored.UnitID.String(), mapping.UnitID)
}

func TestStockRepo_ApplyDeltaMatchesBranchAndProduct(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStockRepo(db)
	stored := seedStock(t, db, 10)

	other := stock.Key{BranchID: stored.BranchID, ProductID: uuid.New(), UnitID: stored.UnitID}
	_, err := repo.ApplyDelta(db, other, decimal.NewFromInt(-1))
	assert.Equal(t, stock.CodeNotFound, stock.CodeOf(err))

	balance, err := repo.ApplyDelta(db, stored, decimal.NewFromInt(-4))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(6)))
}
