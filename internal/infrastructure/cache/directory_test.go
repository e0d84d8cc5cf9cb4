package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/memory"
)

func TestDirectory_SinRedisConsultaRepositorios(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(time.Second)
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p1", SKU: "A", Name: "Tornillo"}))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: "w1", Name: "Central"}))

	dir := NewDirectory(nil, store.Products(), store.Warehouses(), 0, zerolog.Nop())

	p, err := dir.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Tornillo", p.Name)

	w, err := dir.GetWarehouse(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Central", w.Name)

	missing, err := dir.GetProduct(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, dir.InvalidateProduct(ctx, "p1"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "directory:product:p1", productKey("p1"))
	assert.Equal(t, "directory:warehouse:w1", warehouseKey("w1"))
}
