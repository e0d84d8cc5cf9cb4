package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// StockMovementRepository es el diario (solo inserción) de deltas aplicados al libro.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.StockMovement, error)
	DeleteByProduct(ctx context.Context, productID string) error
}
