package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// AvailabilityCalculator calcula cuánto de un producto puede salir de una bodega.
// No hay reservas: el disponible es siempre la cantidad actual del libro.
type AvailabilityCalculator struct {
	stock repository.StockRepository
}

// NewAvailabilityCalculator construye el calculador sobre un libro (pool o tx).
func NewAvailabilityCalculator(stock repository.StockRepository) *AvailabilityCalculator {
	return &AvailabilityCalculator{stock: stock}
}

// AvailableToMove devuelve la cantidad actual; una entrada inexistente es 0.
func (a *AvailabilityCalculator) AvailableToMove(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	s, err := a.stock.Get(ctx, productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	if s == nil {
		return decimal.Zero, nil
	}
	return s.Quantity, nil
}

// AvailableFor lee el disponible de varias llaves.
func (a *AvailabilityCalculator) AvailableFor(ctx context.Context, keys []entity.StockKey) (map[entity.StockKey]decimal.Decimal, error) {
	out := make(map[entity.StockKey]decimal.Decimal, len(keys))
	for _, k := range keys {
		q, err := a.AvailableToMove(ctx, k.ProductID, k.WarehouseID)
		if err != nil {
			return nil, err
		}
		out[k] = q
	}
	return out, nil
}
