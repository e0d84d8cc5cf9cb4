package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// StockRepository es el libro de stock por (producto, bodega). Sin lógica de negocio:
// lectura y aplicación atómica de deltas. Usado dentro de transacciones (TxRunner).
type StockRepository interface {
	// Get devuelve la entrada; si no existe devuelve cantidad 0 (no es error).
	Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error)
	ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error)
	// Lock toma bloqueos exclusivos sobre las llaves (en orden) hasta el fin de la transacción.
	// Devuelve domain.ErrBusy si no los obtiene dentro del tiempo configurado.
	Lock(ctx context.Context, keys []entity.StockKey) error
	// ApplyDelta suma delta (positivo o negativo) creando la entrada si no existe.
	// Devuelve domain.ErrInsufficientStock si el resultado quedaría negativo.
	ApplyDelta(ctx context.Context, key entity.StockKey, delta decimal.Decimal) (*entity.Stock, error)
	// DeleteByProduct elimina todas las entradas del producto (borrado en cascada explícito).
	DeleteByProduct(ctx context.Context, productID string) error
}
