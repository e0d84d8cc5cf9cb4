package repository

import (
	"context"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// DocumentRepository persiste entregas y traslados con sus líneas.
type DocumentRepository interface {
	// Create guarda documento y líneas juntos.
	Create(ctx context.Context, doc *entity.MovementDocument) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.MovementDocument, error)
	// GetForUpdate igual que GetByID pero bloquea el documento hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.MovementDocument, error)
	List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.MovementDocument, error)
	// UpdateOnFinalize escribe estado y cantidades reales; debe ir en la misma transacción que los deltas.
	UpdateOnFinalize(ctx context.Context, id string, fin entity.Finalization) error
	// DeleteLinesByProduct elimina las líneas que referencian al producto (cascada explícita).
	DeleteLinesByProduct(ctx context.Context, productID string) error
}
