package inventory

import (
	"context"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Documents repository.DocumentRepository
	Stock     repository.StockRepository
	Movements repository.StockMovementRepository
	Products  repository.ProductRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error nada queda escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Directory expone productos y bodegas (colaborador externo al motor).
// Devuelve nil, nil cuando el id no existe.
type Directory interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	GetWarehouse(ctx context.Context, id string) (*entity.Warehouse, error)
}

// EventPublisher notifica documentos finalizados (después del commit).
type EventPublisher interface {
	DocumentFinalized(ctx context.Context, doc *entity.MovementDocument) error
}

// NopPublisher descarta los eventos (NATS deshabilitado).
type NopPublisher struct{}

// DocumentFinalized no hace nada.
func (NopPublisher) DocumentFinalized(context.Context, *entity.MovementDocument) error { return nil }
