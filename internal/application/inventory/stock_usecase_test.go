package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

func TestAjuste_Validaciones(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	cases := []struct {
		name string
		in   inventory.AdjustStockInput
		want error
	}{
		{"delta cero", inventory.AdjustStockInput{ProductID: prod, WarehouseID: wA, Delta: decimal.Zero}, domain.ErrInvalidQuantity},
		{"delta fraccionario", inventory.AdjustStockInput{ProductID: prod, WarehouseID: wA, Delta: decimal.RequireFromString("2.25")}, domain.ErrInvalidQuantity},
		{"sin bodega", inventory.AdjustStockInput{ProductID: prod, Delta: n(1)}, domain.ErrValidation},
		{"bodega inexistente", inventory.AdjustStockInput{ProductID: prod, WarehouseID: "x", Delta: n(1)}, domain.ErrNotFound},
		{"deja negativo", inventory.AdjustStockInput{ProductID: prod, WarehouseID: wA, Delta: n(-1)}, domain.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.stock.AdjustStock(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.True(t, f.qty(t, wA).IsZero())
}

func TestAjuste_RegistraEnDiario(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	s, err := f.stock.AdjustStock(ctx, inventory.AdjustStockInput{UserID: "u1", ProductID: prod, WarehouseID: wA, Delta: n(7), Reason: "conteo"})
	require.NoError(t, err)
	assert.True(t, s.Quantity.Equal(n(7)))

	journal, err := f.stock.ListMovements(ctx, inventory.MovementFilter{ProductID: prod})
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, entity.StockMovementAdjustment, journal[0].Type)
	assert.Equal(t, "conteo", journal[0].Reason)
	assert.Equal(t, "u1", journal[0].CreatedBy)
	assert.Empty(t, journal[0].DocumentID)
}

func TestListMovements_RequiereFiltro(t *testing.T) {
	f := newFixture(t, time.Second)
	_, err := f.stock.ListMovements(context.Background(), inventory.MovementFilter{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListByWarehouse_SoloEntradasDeLaBodega(t *testing.T) {
	f := newFixture(t, time.Second)
	f.adjust(t, wA, 3)
	f.adjust(t, wB, 4)

	list, err := f.stock.ListByWarehouse(context.Background(), wB)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Quantity.Equal(n(4)))
}
