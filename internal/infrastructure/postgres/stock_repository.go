package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto en una bodega.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	query := `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
		}
		return nil, wrapErr("get stock", err)
	}
	return &s, nil
}

// ListByProduct lista las entradas de un producto en todas las bodegas.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error) {
	return r.list(ctx, `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock WHERE product_id = $1 ORDER BY warehouse_id`, productID)
}

// ListByWarehouse lista las entradas de una bodega.
func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error) {
	return r.list(ctx, `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock WHERE warehouse_id = $1 ORDER BY product_id`, warehouseID)
}

func (r *StockRepo) list(ctx context.Context, query string, arg string) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapErr("list stock", err)
	}
	defer rows.Close()
	var out []*entity.Stock
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Lock toma un advisory lock de transacción por llave, en el orden recibido.
// A diferencia de SELECT ... FOR UPDATE funciona aunque la fila de stock aún no exista.
func (r *StockRepo) Lock(ctx context.Context, keys []entity.StockKey) error {
	for _, k := range keys {
		if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k.String()); err != nil {
			return wrapErr("lock stock "+k.String(), err)
		}
	}
	return nil
}

// ApplyDelta suma delta a la entrada. Un delta positivo crea la fila si no existe; uno
// negativo solo descuenta si el resultado queda >= 0. El CHECK (quantity >= 0) de la tabla
// sigue siendo la última barrera contra stock negativo.
func (r *StockRepo) ApplyDelta(ctx context.Context, key entity.StockKey, delta decimal.Decimal) (*entity.Stock, error) {
	if delta.IsZero() {
		return r.Get(ctx, key.ProductID, key.WarehouseID)
	}
	if delta.IsPositive() {
		return r.increment(ctx, key, delta)
	}
	return r.decrement(ctx, key, delta)
}

func (r *StockRepo) increment(ctx context.Context, key entity.StockKey, delta decimal.Decimal) (*entity.Stock, error) {
	query := `
		INSERT INTO stock (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING product_id, warehouse_id, quantity, updated_at`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, delta).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("increment stock", err)
	}
	return &s, nil
}

// decrement no usa upsert: el INSERT propuesto llevaría la cantidad negativa y el CHECK
// lo rechazaría antes de resolver el conflicto.
func (r *StockRepo) decrement(ctx context.Context, key entity.StockKey, delta decimal.Decimal) (*entity.Stock, error) {
	query := `
		UPDATE stock SET quantity = quantity + $3, updated_at = now()
		WHERE product_id = $1 AND warehouse_id = $2 AND quantity + $3 >= 0
		RETURNING product_id, warehouse_id, quantity, updated_at`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, delta).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt,
	)
	switch {
	case err == nil:
		return &s, nil
	case errors.Is(err, pgx.ErrNoRows), isCheckViolation(err):
		return nil, r.insufficient(ctx, key, delta)
	}
	return nil, wrapErr("decrement stock", err)
}

func (r *StockRepo) insufficient(ctx context.Context, key entity.StockKey, delta decimal.Decimal) error {
	requested := delta.Neg()
	me := &domain.MovementError{
		Kind:        domain.ErrInsufficientStock,
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		Requested:   &requested,
	}
	if current, err := r.Get(ctx, key.ProductID, key.WarehouseID); err == nil {
		me.Available = &current.Quantity
	}
	return me
}

// DeleteByProduct elimina todas las entradas del producto.
func (r *StockRepo) DeleteByProduct(ctx context.Context, productID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock WHERE product_id = $1`, productID); err != nil {
		return wrapErr("delete stock by product", err)
	}
	return nil
}
