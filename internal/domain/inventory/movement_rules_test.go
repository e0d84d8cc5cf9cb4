package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func delivery(lines ...entity.MovementLine) *entity.MovementDocument {
	return &entity.MovementDocument{ID: "doc-1", Kind: entity.DocumentKindDelivery, Customer: "Cliente", Lines: lines}
}

func transfer(from, to string, lines ...entity.MovementLine) *entity.MovementDocument {
	return &entity.MovementDocument{ID: "doc-2", Kind: entity.DocumentKindTransfer, SourceWarehouseID: from, DestinationWarehouseID: to, Lines: lines}
}

func TestPrepareDraft_NumeraLineasYAsignaOrigen(t *testing.T) {
	doc := transfer("w1", "w2",
		entity.MovementLine{ProductID: "p1", RequestedQuantity: d(3)},
		entity.MovementLine{ProductID: "p2", RequestedQuantity: d(1)},
	)
	_, err := PrepareDraft(doc)
	require.NoError(t, err)

	assert.Equal(t, entity.DocumentStatusDraft, doc.Status)
	for i, l := range doc.Lines {
		assert.Equal(t, i+1, l.LineNumber)
		assert.Equal(t, "w1", l.SourceWarehouseID)
		assert.Equal(t, "doc-2", l.DocumentID)
	}
}

func TestPrepareDraft_Errores(t *testing.T) {
	cases := []struct {
		name string
		doc  *entity.MovementDocument
		want error
	}{
		{"sin líneas", delivery(), domain.ErrValidation},
		{"entrega sin cliente", &entity.MovementDocument{Kind: entity.DocumentKindDelivery, Lines: []entity.MovementLine{{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(1)}}}, domain.ErrValidation},
		{"entrega sin bodega en la línea", delivery(entity.MovementLine{ProductID: "p1", RequestedQuantity: d(1)}), domain.ErrValidation},
		{"cantidad cero", delivery(entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(0)}), domain.ErrInvalidQuantity},
		{"cantidad negativa", delivery(entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(-2)}), domain.ErrInvalidQuantity},
		{"cantidad fraccionaria", delivery(entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: decimal.RequireFromString("0.5")}), domain.ErrInvalidQuantity},
		{"traslado misma bodega", transfer("w1", "w1", entity.MovementLine{ProductID: "p1", RequestedQuantity: d(1)}), domain.ErrValidation},
		{"traslado sin destino", transfer("w1", "", entity.MovementLine{ProductID: "p1", RequestedQuantity: d(1)}), domain.ErrValidation},
		{"traslado producto repetido", transfer("w1", "w2",
			entity.MovementLine{ProductID: "p1", RequestedQuantity: d(1)},
			entity.MovementLine{ProductID: "p1", RequestedQuantity: d(2)},
		), domain.ErrValidation},
		{"entrega producto y bodega repetidos", delivery(
			entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(1)},
			entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(1)},
		), domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PrepareDraft(tc.doc)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// El mismo producto desde dos bodegas distintas es válido en una entrega.
func TestPrepareDraft_EntregaMismoProductoDistintaBodega(t *testing.T) {
	doc := delivery(
		entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(1)},
		entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w2", RequestedQuantity: d(1)},
	)
	_, err := PrepareDraft(doc)
	assert.NoError(t, err)
}

func TestNormalizeCustomer(t *testing.T) {
	composed := "Jos\u00e9  P\u00e9rez "
	decomposed := "  Jose\u0301 Pe\u0301rez"
	assert.Equal(t, NormalizeCustomer(composed), NormalizeCustomer(decomposed))
	assert.Equal(t, "Jos\u00e9 P\u00e9rez", NormalizeCustomer(decomposed))
}

func TestCheckAvailability_SumaLineasDeLaMismaEntrada(t *testing.T) {
	doc := delivery(
		entity.MovementLine{LineNumber: 1, ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(30)},
		entity.MovementLine{LineNumber: 2, ProductID: "p2", SourceWarehouseID: "w1", RequestedQuantity: d(5)},
	)
	rule, _ := RuleFor(entity.DocumentKindDelivery)
	requested := func(l entity.MovementLine) decimal.Decimal { return l.RequestedQuantity }
	available := map[entity.StockKey]decimal.Decimal{
		{ProductID: "p1", WarehouseID: "w1"}: d(30),
		{ProductID: "p2", WarehouseID: "w1"}: d(4),
	}

	err := CheckAvailability(rule, doc, requested, available)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	me, ok := domain.AsMovementError(err)
	require.True(t, ok)
	assert.Equal(t, 2, me.LineNumber)
	assert.Equal(t, "p2", me.ProductID)
	assert.True(t, me.Available.Equal(d(4)))
	assert.True(t, me.Requested.Equal(d(5)))
}

func TestPlanFinalize_TrasladoDeltasConservanTotal(t *testing.T) {
	doc := transfer("w1", "w2", entity.MovementLine{ProductID: "p1", RequestedQuantity: d(30)})
	_, err := PrepareDraft(doc)
	require.NoError(t, err)

	plan, err := PlanFinalize(doc, []entity.LineActual{{LineNumber: 1, Quantity: d(25)}})
	require.NoError(t, err)
	require.Len(t, plan.Deltas, 2)

	sum := decimal.Zero
	for _, delta := range plan.Deltas {
		sum = sum.Add(delta.Quantity)
	}
	assert.True(t, sum.IsZero())
	assert.Equal(t, entity.StockMovementTransferOut, plan.Deltas[0].Type)
	assert.True(t, plan.Deltas[0].Quantity.Equal(d(-25)))
	assert.Equal(t, []entity.StockKey{{ProductID: "p1", WarehouseID: "w1"}, {ProductID: "p1", WarehouseID: "w2"}}, plan.LockKeys())
}

func TestPlanFinalize_EntregaSoloDescuenta(t *testing.T) {
	doc := delivery(entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(10)})
	_, err := PrepareDraft(doc)
	require.NoError(t, err)

	plan, err := PlanFinalize(doc, []entity.LineActual{{LineNumber: 1, Quantity: d(7)}})
	require.NoError(t, err)
	require.Len(t, plan.Deltas, 1)
	assert.True(t, plan.Deltas[0].Quantity.Equal(d(-7)))
	assert.Equal(t, entity.StockMovementDeliveryOut, plan.Deltas[0].Type)
}

// Cantidad real en cero: la línea queda registrada pero no genera delta.
func TestPlanFinalize_RealCeroNoGeneraDelta(t *testing.T) {
	doc := delivery(entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(10)})
	_, err := PrepareDraft(doc)
	require.NoError(t, err)

	plan, err := PlanFinalize(doc, []entity.LineActual{{LineNumber: 1, Quantity: d(0)}})
	require.NoError(t, err)
	assert.Empty(t, plan.Deltas)
	require.Len(t, plan.Actuals, 1)
	assert.True(t, plan.Actuals[0].Quantity.IsZero())
}

func TestPlanFinalize_Errores(t *testing.T) {
	newDoc := func() *entity.MovementDocument {
		doc := delivery(
			entity.MovementLine{ProductID: "p1", SourceWarehouseID: "w1", RequestedQuantity: d(10)},
			entity.MovementLine{ProductID: "p2", SourceWarehouseID: "w1", RequestedQuantity: d(5)},
		)
		_, err := PrepareDraft(doc)
		require.NoError(t, err)
		return doc
	}
	cases := []struct {
		name    string
		actuals []entity.LineActual
		want    error
	}{
		{"falta una línea", []entity.LineActual{{LineNumber: 1, Quantity: d(1)}}, domain.ErrValidation},
		{"línea inexistente", []entity.LineActual{{LineNumber: 1, Quantity: d(1)}, {LineNumber: 2, Quantity: d(1)}, {LineNumber: 9, Quantity: d(1)}}, domain.ErrValidation},
		{"línea repetida", []entity.LineActual{{LineNumber: 1, Quantity: d(1)}, {LineNumber: 1, Quantity: d(1)}}, domain.ErrValidation},
		{"real mayor que solicitado", []entity.LineActual{{LineNumber: 1, Quantity: d(11)}, {LineNumber: 2, Quantity: d(1)}}, domain.ErrInvalidQuantity},
		{"real negativo", []entity.LineActual{{LineNumber: 1, Quantity: d(-1)}, {LineNumber: 2, Quantity: d(1)}}, domain.ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanFinalize(newDoc(), tc.actuals)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("ya finalizado", func(t *testing.T) {
		doc := newDoc()
		doc.Status = entity.DocumentStatusFinalized
		_, err := PlanFinalize(doc, nil)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	})
}
