package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_NetsLinesOfTheSameProduct(t *testing.T) {
	h, piece, box, _ := threeLevelProduct()
	branchID := uuid.New()
	r := NewReducer(NewConverter(nil))

	lines := []Line{
		{ProductID: h.ProductID, UnitID: box, Qty: dec("2")},
		{ProductID: h.ProductID, UnitID: piece, Qty: dec("5")},
	}
	deltas, resolved, err := r.Reduce(branchID, lines, map[uuid.UUID]Hierarchy{h.ProductID: h}, Debit, false)
	require.NoError(t, err)

	key := Key{BranchID: branchID, ProductID: h.ProductID, UnitID: piece}
	require.Len(t, deltas, 1)
	assert.Equal(t, "-29", deltas[key].String())
	assert.Equal(t, "24", resolved[0].BaseQty.String())
	assert.Equal(t, "5", resolved[1].BaseQty.String())
	assert.Equal(t, []Key{key}, deltas.Debits())
}

func TestReduce_CreditIsPositive(t *testing.T) {
	h, piece, _, _ := threeLevelProduct()
	r := NewReducer(NewConverter(nil))

	deltas, _, err := r.Reduce(uuid.New(), []Line{{ProductID: h.ProductID, UnitID: piece, Qty: dec("4")}},
		map[uuid.UUID]Hierarchy{h.ProductID: h}, Credit, false)
	require.NoError(t, err)
	for _, v := range deltas {
		assert.Equal(t, "4", v.String())
	}
	assert.Empty(t, deltas.Debits())
}

func TestReduce_SeparateProductsStaySeparate(t *testing.T) {
	h1, piece1, _, _ := threeLevelProduct()
	h2, _, box2, _ := threeLevelProduct()
	branchID := uuid.New()
	r := NewReducer(NewConverter(nil))

	deltas, _, err := r.Reduce(branchID, []Line{
		{ProductID: h1.ProductID, UnitID: piece1, Qty: dec("1")},
		{ProductID: h2.ProductID, UnitID: box2, Qty: dec("1")},
	}, map[uuid.UUID]Hierarchy{h1.ProductID: h1, h2.ProductID: h2}, Debit, false)
	require.NoError(t, err)
	assert.Len(t, deltas, 2)

	keys := deltas.Keys()
	assert.True(t, keys[0].Less(keys[1]))
}

func TestReduce_UnknownUnitFails(t *testing.T) {
	h, _, _, _ := threeLevelProduct()
	r := NewReducer(NewConverter(nil))

	_, _, err := r.Reduce(uuid.New(), []Line{{ProductID: h.ProductID, UnitID: uuid.New(), Qty: dec("1")}},
		map[uuid.UUID]Hierarchy{h.ProductID: h}, Debit, false)
	var um *UnitMappingError
	assert.ErrorAs(t, err, &um)
}

func TestReduce_UnknownProductFails(t *testing.T) {
	r := NewReducer(NewConverter(nil))
	_, _, err := r.Reduce(uuid.New(), []Line{{ProductID: uuid.New(), UnitID: uuid.New(), Qty: dec("1")}},
		map[uuid.UUID]Hierarchy{}, Debit, false)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestReduce_HonoursSnapshot(t *testing.T) {
	h, _, box, _ := threeLevelProduct()
	branchID := uuid.New()
	snapshotUnit := uuid.New()
	r := NewReducer(NewConverter(nil))

	line := Line{ProductID: h.ProductID, UnitID: box, Qty: dec("2"), BaseUnitID: &snapshotUnit, BaseQty: dec("20")}
	deltas, _, err := r.Reduce(branchID, []Line{line}, map[uuid.UUID]Hierarchy{}, Credit, true)
	require.NoError(t, err)
	assert.Equal(t, "20", deltas[Key{BranchID: branchID, ProductID: h.ProductID, UnitID: snapshotUnit}].String())
}

func TestDeltas_Negate(t *testing.T) {
	k := Key{BranchID: uuid.New(), ProductID: uuid.New(), UnitID: uuid.New()}
	d := Deltas{k: dec("-3")}
	assert.Equal(t, "3", d.Negate()[k].String())
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(&InsufficientStockError{}))
	assert.True(t, IsBusiness(&DuplicateReferenceError{ReferenceNo: "SO-1"}))
	assert.False(t, IsBusiness(ErrOperationTimeout))
	assert.False(t, IsBusiness(ErrConflict))
	assert.False(t, IsBusiness(assert.AnError))
}
