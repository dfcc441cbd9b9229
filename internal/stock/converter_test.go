package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/internal/model"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func threeLevelProduct() (Hierarchy, uuid.UUID, uuid.UUID, uuid.UUID) {
	productID := uuid.New()
	piece, box, carton := uuid.New(), uuid.New(), uuid.New()
	h := Hierarchy{ProductID: productID, Units: []model.ProductUnit{
		{ProductID: productID, UnitID: piece, Qty: dec("1"), Level: 1},
		{ProductID: productID, UnitID: box, Qty: dec("12"), Level: 2},
		{ProductID: productID, UnitID: carton, Qty: dec("20"), Level: 3},
	}}
	return h, piece, box, carton
}

func TestLegacyLevelStrategy(t *testing.T) {
	s := LegacyLevelStrategy{}

	tests := []struct {
		name string
		in   Conversion
		want string
	}{
		{"base unit multiplies by base multiplier", Conversion{Level: 1, BaseMultiplier: dec("1"), SelectedMultiplier: dec("1"), OrderedQty: dec("30")}, "30"},
		{"base unit with non-unit multiplier", Conversion{Level: 1, BaseMultiplier: dec("2"), SelectedMultiplier: dec("2"), OrderedQty: dec("5")}, "10"},
		{"second level multiplies by selected multiplier", Conversion{Level: 2, BaseMultiplier: dec("1"), SelectedMultiplier: dec("12"), OrderedQty: dec("2")}, "24"},
		{"third level passes through", Conversion{Level: 3, BaseMultiplier: dec("1"), SelectedMultiplier: dec("20"), OrderedQty: dec("3")}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, dec(tt.want).Equal(s.ToBase(tt.in)), "got %s", s.ToBase(tt.in))
		})
	}
}

func TestTelescopingStrategy(t *testing.T) {
	h, piece, box, carton := threeLevelProduct()
	c := NewConverter(TelescopingStrategy{})

	cases := map[uuid.UUID]string{piece: "3", box: "36", carton: "720"}
	for unitID, want := range cases {
		unit, err := h.Find(unitID)
		require.NoError(t, err)
		got, err := c.ToBase(h, unit, dec("3"))
		require.NoError(t, err)
		assert.True(t, dec(want).Equal(got), "level %d: got %s want %s", unit.Level, got, want)
	}
}

func TestStrategiesAgreeOnFirstTwoLevels(t *testing.T) {
	h, piece, box, _ := threeLevelProduct()
	legacy := NewConverter(LegacyLevelStrategy{})
	telescoping := NewConverter(TelescopingStrategy{})

	for _, unitID := range []uuid.UUID{piece, box} {
		unit, _ := h.Find(unitID)
		a, err := legacy.ToBase(h, unit, dec("7"))
		require.NoError(t, err)
		b, err := telescoping.ToBase(h, unit, dec("7"))
		require.NoError(t, err)
		assert.True(t, a.Equal(b))
	}
}

func TestConverter_BoxOfTwelve(t *testing.T) {
	productID := uuid.New()
	piece, box := uuid.New(), uuid.New()
	h, err := NewHierarchy(productID, []model.ProductUnit{
		{ProductID: productID, UnitID: box, Qty: dec("12"), Level: 2},
		{ProductID: productID, UnitID: piece, Qty: dec("1"), Level: 1},
	})
	require.NoError(t, err)

	unit, err := h.Find(box)
	require.NoError(t, err)
	got, err := NewConverter(nil).ToBase(h, unit, dec("2"))
	require.NoError(t, err)
	assert.Equal(t, "24", got.String())
}

func TestConverter_RoundTrip(t *testing.T) {
	h, piece, box, _ := threeLevelProduct()
	c := NewConverter(LegacyLevelStrategy{})

	for _, unitID := range []uuid.UUID{piece, box} {
		for _, q := range []string{"1", "2.5", "17", "0.25"} {
			unit, _ := h.Find(unitID)
			baseQty, err := c.ToBase(h, unit, dec(q))
			require.NoError(t, err)
			back, err := FromBase(h, unit, baseQty)
			require.NoError(t, err)
			assert.True(t, dec(q).Equal(back), "unit level %d qty %s came back as %s", unit.Level, q, back)
		}
	}
}

func TestConverter_RejectsNonPositiveQty(t *testing.T) {
	h, piece, _, _ := threeLevelProduct()
	unit, _ := h.Find(piece)

	_, err := NewConverter(nil).ToBase(h, unit, decimal.Zero)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, StrategyLegacy, s.Name())

	s, err = StrategyByName("telescoping")
	require.NoError(t, err)
	assert.Equal(t, StrategyTelescoping, s.Name())

	_, err = StrategyByName("metric")
	assert.Error(t, err)
}
