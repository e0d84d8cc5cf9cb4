package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	rules "github.com/jhoicas/inventario-movimientos/internal/domain/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// StockUseCase consultas del libro y ajustes manuales (la vía de entrada de stock a la red).
type StockUseCase struct {
	txRunner  TxRunner
	stock     repository.StockRepository
	movements repository.StockMovementRepository
	directory Directory
	log       zerolog.Logger
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(
	txRunner TxRunner,
	stock repository.StockRepository,
	movements repository.StockMovementRepository,
	directory Directory,
	log zerolog.Logger,
) *StockUseCase {
	return &StockUseCase{txRunner: txRunner, stock: stock, movements: movements, directory: directory, log: log}
}

// AdjustStockInput ajuste positivo (entrada) o negativo (merma) de una entrada del libro.
type AdjustStockInput struct {
	UserID      string
	ProductID   string
	WarehouseID string
	Delta       decimal.Decimal
	Reason      string
}

// AdjustStock bloquea la entrada, aplica el delta y lo registra en el diario.
// Un ajuste que dejaría el stock negativo falla con ErrInsufficientStock; nunca se recorta.
func (uc *StockUseCase) AdjustStock(ctx context.Context, in AdjustStockInput) (*entity.Stock, error) {
	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, domain.Validation("product_id y warehouse_id son requeridos")
	}
	if in.Delta.IsZero() || !rules.IsWholeQuantity(in.Delta) {
		q := in.Delta
		return nil, &domain.MovementError{Kind: domain.ErrInvalidQuantity, ProductID: in.ProductID, WarehouseID: in.WarehouseID, Requested: &q, Reason: "el ajuste debe ser un entero distinto de cero"}
	}
	if err := uc.checkPair(ctx, in.ProductID, in.WarehouseID); err != nil {
		return nil, err
	}

	key := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID}
	var out *entity.Stock
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		if err := r.Stock.Lock(ctx, []entity.StockKey{key}); err != nil {
			return err
		}
		current, err := r.Stock.Get(ctx, key.ProductID, key.WarehouseID)
		if err != nil {
			return err
		}
		if current.Quantity.Add(in.Delta).IsNegative() {
			return domain.InsufficientStock(key.ProductID, key.WarehouseID, in.Delta.Neg(), current.Quantity)
		}
		s, err := r.Stock.ApplyDelta(ctx, key, in.Delta)
		if err != nil {
			return err
		}
		out = s
		return r.Movements.Create(ctx, &entity.StockMovement{
			ID:           uuid.New().String(),
			ProductID:    key.ProductID,
			WarehouseID:  key.WarehouseID,
			Type:         entity.StockMovementAdjustment,
			Quantity:     in.Delta,
			BalanceAfter: s.Quantity,
			Reason:       in.Reason,
			CreatedAt:    time.Now().UTC(),
			CreatedBy:    in.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("product_id", key.ProductID).
		Str("warehouse_id", key.WarehouseID).
		Str("delta", in.Delta.String()).
		Str("balance", out.Quantity.String()).
		Msg("ajuste de stock aplicado")
	return out, nil
}

// GetStock devuelve la entrada (producto, bodega); inexistente = 0.
func (uc *StockUseCase) GetStock(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	if err := uc.checkPair(ctx, productID, warehouseID); err != nil {
		return nil, err
	}
	return uc.stock.Get(ctx, productID, warehouseID)
}

// ListByProduct lista el stock de un producto en todas las bodegas.
func (uc *StockUseCase) ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error) {
	return uc.stock.ListByProduct(ctx, productID)
}

// ListByWarehouse lista el stock de una bodega.
func (uc *StockUseCase) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error) {
	return uc.stock.ListByWarehouse(ctx, warehouseID)
}

// MovementFilter filtro del diario: exactamente uno de DocumentID, ProductID o WarehouseID.
type MovementFilter struct {
	DocumentID  string
	ProductID   string
	WarehouseID string
	From, To    *time.Time
	Limit       int
	Offset      int
}

// ListMovements consulta el diario de movimientos.
func (uc *StockUseCase) ListMovements(ctx context.Context, f MovementFilter) ([]*entity.StockMovement, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	switch {
	case f.DocumentID != "":
		return uc.movements.ListByDocument(ctx, f.DocumentID)
	case f.ProductID != "":
		return uc.movements.ListByProduct(ctx, f.ProductID, f.From, f.To, f.Limit, f.Offset)
	case f.WarehouseID != "":
		return uc.movements.ListByWarehouse(ctx, f.WarehouseID, f.From, f.To, f.Limit, f.Offset)
	}
	return nil, domain.Validation("indique document_id, product_id o warehouse_id")
}

func (uc *StockUseCase) checkPair(ctx context.Context, productID, warehouseID string) error {
	p, err := uc.directory.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return &domain.MovementError{Kind: domain.ErrNotFound, ProductID: productID, Reason: "producto no encontrado"}
	}
	w, err := uc.directory.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return err
	}
	if w == nil {
		return &domain.MovementError{Kind: domain.ErrNotFound, WarehouseID: warehouseID, Reason: "bodega no encontrada"}
	}
	return nil
}
