package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

var keyA = entity.StockKey{ProductID: "p1", WarehouseID: "w1"}

func TestStock_EntradaInexistenteEsCero(t *testing.T) {
	s := NewStore(time.Second)
	st, err := s.Stock().Get(context.Background(), "p1", "w1")
	require.NoError(t, err)
	assert.True(t, st.Quantity.IsZero())
}

func TestStock_ApplyDeltaNoQuedaNegativo(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	_, err := s.Stock().ApplyDelta(ctx, keyA, decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = s.Stock().ApplyDelta(ctx, keyA, decimal.NewFromInt(-11))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	me, ok := domain.AsMovementError(err)
	require.True(t, ok)
	assert.True(t, me.Available.Equal(decimal.NewFromInt(10)))

	st, err := s.Stock().Get(ctx, "p1", "w1")
	require.NoError(t, err)
	assert.True(t, st.Quantity.Equal(decimal.NewFromInt(10)))
}

func TestRun_ErrorNoEscribeNada(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	boom := errors.New("boom")

	err := s.Run(ctx, func(r inventory.Repos) error {
		if _, err := r.Stock.ApplyDelta(ctx, keyA, decimal.NewFromInt(5)); err != nil {
			return err
		}
		if err := r.Movements.Create(ctx, &entity.StockMovement{ProductID: "p1", WarehouseID: "w1"}); err != nil {
			return err
		}
		// dentro de la tx se ve lo propio
		st, err := r.Stock.Get(ctx, "p1", "w1")
		require.NoError(t, err)
		assert.True(t, st.Quantity.Equal(decimal.NewFromInt(5)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := s.Stock().Get(ctx, "p1", "w1")
	require.NoError(t, err)
	assert.True(t, st.Quantity.IsZero())
	list, err := s.Movements().ListByProduct(ctx, "p1", nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLock_TimeoutDevuelveBusy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(50 * time.Millisecond)

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(r inventory.Repos) error {
			if err := r.Stock.Lock(ctx, []entity.StockKey{keyA}); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := s.Run(ctx, func(r inventory.Repos) error {
		return r.Stock.Lock(ctx, []entity.StockKey{keyA})
	})
	close(done)
	require.ErrorIs(t, err, domain.ErrBusy)
	me, ok := domain.AsMovementError(err)
	require.True(t, ok)
	assert.Equal(t, "p1", me.ProductID)
}

func TestLock_SeLiberaAlTerminarLaTx(t *testing.T) {
	ctx := context.Background()
	s := NewStore(50 * time.Millisecond)

	require.NoError(t, s.Run(ctx, func(r inventory.Repos) error {
		// reentrante dentro de la misma tx
		if err := r.Stock.Lock(ctx, []entity.StockKey{keyA}); err != nil {
			return err
		}
		return r.Stock.Lock(ctx, []entity.StockKey{keyA})
	}))
	require.NoError(t, s.Run(ctx, func(r inventory.Repos) error {
		return r.Stock.Lock(ctx, []entity.StockKey{keyA})
	}))

	// también tras un rollback
	_ = s.Run(ctx, func(r inventory.Repos) error {
		_ = r.Stock.Lock(ctx, []entity.StockKey{keyA})
		return errors.New("rollback")
	})
	require.NoError(t, s.Run(ctx, func(r inventory.Repos) error {
		return r.Stock.Lock(ctx, []entity.StockKey{keyA})
	}))
}

func TestLock_ContextoCancelado(t *testing.T) {
	s := NewStore(time.Minute)
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(r inventory.Repos) error {
			_ = r.Stock.Lock(ctx, []entity.StockKey{keyA})
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.Run(cctx, func(r inventory.Repos) error {
		return r.Stock.Lock(cctx, []entity.StockKey{keyA})
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDocuments_UpdateOnFinalizeUnaSolaVez(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	doc := &entity.MovementDocument{
		ID: "d1", Kind: entity.DocumentKindDelivery, Status: entity.DocumentStatusDraft,
		Lines: []entity.MovementLine{{LineNumber: 1, ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: decimal.NewFromInt(3)}},
	}
	require.NoError(t, s.Documents().Create(ctx, doc))

	fin := entity.Finalization{
		Status:      entity.DocumentStatusFinalized,
		Actuals:     []entity.LineActual{{LineNumber: 1, Quantity: decimal.NewFromInt(2)}},
		FinalizedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Documents().UpdateOnFinalize(ctx, "d1", fin))
	err := s.Documents().UpdateOnFinalize(ctx, "d1", fin)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	got, err := s.Documents().GetByID(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got.Lines[0].ActualQuantity)
	assert.True(t, got.Lines[0].ActualQuantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "d1", got.Lines[0].DocumentID)

	// el llamador no comparte punteros con el store
	got.Status = entity.DocumentStatusDraft
	again, _ := s.Documents().GetByID(ctx, "d1")
	assert.True(t, again.IsFinalized())
}

func TestDocuments_ListFiltraPorBodega(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	base := time.Now().UTC()
	require.NoError(t, s.Documents().Create(ctx, &entity.MovementDocument{
		ID: "t1", Kind: entity.DocumentKindTransfer, Status: entity.DocumentStatusDraft,
		SourceWarehouseID: "w1", DestinationWarehouseID: "w2", CreatedAt: base,
	}))
	require.NoError(t, s.Documents().Create(ctx, &entity.MovementDocument{
		ID: "d1", Kind: entity.DocumentKindDelivery, Status: entity.DocumentStatusDraft, CreatedAt: base.Add(time.Second),
		Lines: []entity.MovementLine{{LineNumber: 1, ProductID: "p1", SourceWarehouseID: "w3", RequestedQuantity: decimal.NewFromInt(1)}},
	}))

	list, err := s.Documents().List(ctx, entity.DocumentFilter{WarehouseID: "w2", Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].ID)

	list, err = s.Documents().List(ctx, entity.DocumentFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d1", list[0].ID, "más reciente primero")

	list, err = s.Documents().List(ctx, entity.DocumentFilter{WarehouseID: "w3", Kind: entity.DocumentKindDelivery, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestProducts_SKUDuplicado(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "p1", SKU: "A"}))
	err := s.Products().Create(ctx, &entity.Product{ID: "p2", SKU: "A"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	missing, err := s.GetProduct(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCascada_BorraStockLineasYDiario(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "p1", SKU: "A"}))
	_, err := s.Stock().ApplyDelta(ctx, keyA, decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, s.Movements().Create(ctx, &entity.StockMovement{ProductID: "p1", WarehouseID: "w1", CreatedAt: time.Now()}))
	require.NoError(t, s.Documents().Create(ctx, &entity.MovementDocument{
		ID: "d1", Kind: entity.DocumentKindDelivery, Status: entity.DocumentStatusDraft,
		Lines: []entity.MovementLine{
			{LineNumber: 1, ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: decimal.NewFromInt(1)},
			{LineNumber: 2, ProductID: "p2", SourceWarehouseID: "w1", RequestedQuantity: decimal.NewFromInt(1)},
		},
	}))

	require.NoError(t, s.Run(ctx, func(r inventory.Repos) error {
		if err := r.Documents.DeleteLinesByProduct(ctx, "p1"); err != nil {
			return err
		}
		if err := r.Movements.DeleteByProduct(ctx, "p1"); err != nil {
			return err
		}
		if err := r.Stock.DeleteByProduct(ctx, "p1"); err != nil {
			return err
		}
		return r.Products.Delete(ctx, "p1")
	}))

	entries, err := s.Stock().ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	moves, err := s.Movements().ListByProduct(ctx, "p1", nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, moves)
	doc, err := s.Documents().GetByID(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "p2", doc.Lines[0].ProductID)
	p, _ := s.GetProduct(ctx, "p1")
	assert.Nil(t, p)
}

func TestMovements_FiltroPorFechas(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Movements().Create(ctx, &entity.StockMovement{
			ProductID: "p1", WarehouseID: "w1", CreatedAt: t0.Add(time.Duration(i) * time.Hour),
		}))
	}
	from := t0.Add(30 * time.Minute)
	list, err := s.Movements().ListByWarehouse(ctx, "w1", &from, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.Movements().ListByWarehouse(ctx, "w1", nil, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].CreatedAt.Equal(t0.Add(time.Hour)))
}
