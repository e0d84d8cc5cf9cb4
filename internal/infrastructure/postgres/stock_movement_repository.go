package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo diario de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, document_id, document_kind, product_id, warehouse_id, type, quantity,
	balance_after, reason, created_at, created_by`

// Create persiste un registro del diario.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		m.ID, nullableString(m.DocumentID), nullableString(string(m.DocumentKind)),
		m.ProductID, m.WarehouseID, m.Type, m.Quantity, m.BalanceAfter,
		nullableString(m.Reason), m.CreatedAt, nullableString(m.CreatedBy),
	)
	if err != nil {
		return wrapErr("create stock movement", err)
	}
	return nil
}

// ListByWarehouse lista el diario de una bodega en orden cronológico; from/to opcionales.
func (r *StockMovementRepo) ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE warehouse_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at, id LIMIT $4 OFFSET $5`,
		warehouseID, from, to, limit, offset)
}

// ListByProduct lista el diario de un producto en orden cronológico; from/to opcionales.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE product_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at, id LIMIT $4 OFFSET $5`,
		productID, from, to, limit, offset)
}

// ListByDocument devuelve los deltas que aplicó un documento finalizado.
func (r *StockMovementRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE document_id = $1 ORDER BY created_at, id`, documentID)
}

// DeleteByProduct elimina los registros del producto (borrado en cascada).
func (r *StockMovementRepo) DeleteByProduct(ctx context.Context, productID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, productID); err != nil {
		return wrapErr("delete stock movements by product", err)
	}
	return nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list stock movements", err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		var (
			m                       entity.StockMovement
			docID, kind, reason, by *string
		)
		if err := rows.Scan(
			&m.ID, &docID, &kind, &m.ProductID, &m.WarehouseID, &m.Type, &m.Quantity,
			&m.BalanceAfter, &reason, &m.CreatedAt, &by,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.DocumentID = derefString(docID)
		m.DocumentKind = entity.DocumentKind(derefString(kind))
		m.Reason = derefString(reason)
		m.CreatedBy = derefString(by)
		out = append(out, &m)
	}
	return out, rows.Err()
}
