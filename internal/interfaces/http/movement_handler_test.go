package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/application/usecase"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/inventario-movimientos/internal/interfaces/http"
)

const (
	prodA  = "prod-a"
	bodNor = "bod-norte"
	bodSur = "bod-sur"
)

// testServer API completa sobre el store en memoria, con un producto y dos bodegas.
type testServer struct {
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T, lockTimeout time.Duration) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(lockTimeout)
	log := zerolog.Nop()

	now := time.Now().UTC()
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: prodA, SKU: "SKU-A", Name: "Cemento gris", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: bodNor, Name: "Norte", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: bodSur, Name: "Sur", CreatedAt: now, UpdatedAt: now}))

	engine := inventory.NewMovementEngine(store, store.Documents(), inventory.NewAvailabilityCalculator(store.Stock()), store, nil, log)
	app := fiber.New()
	app.Use(apphttp.AccessLog(log))
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:   usecase.NewProductUseCase(store.Products(), store, nil, log),
		WarehouseUC: usecase.NewWarehouseUseCase(store.Warehouses()),
		Engine:      engine,
		StockUC:     inventory.NewStockUseCase(store, store.Stock(), store.Movements(), store, log),
		PDFUC:       inventory.NewPDFUseCase(engine, store, pdf.NewMarotoNoteGenerator("Ferretería de prueba")),
		JWTSecret:   testJWTSecret,
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) seed(t *testing.T, warehouseID string, qty int64) {
	t.Helper()
	_, err := s.store.Stock().ApplyDelta(context.Background(), entity.StockKey{ProductID: prodA, WarehouseID: warehouseID}, decimal.NewFromInt(qty))
	require.NoError(t, err)
}

func (s *testServer) call(t *testing.T, method, path, role string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) quantity(t *testing.T, warehouseID string) decimal.Decimal {
	t.Helper()
	resp := s.call(t, http.MethodGet, "/api/stock?product_id="+prodA+"&warehouse_id="+warehouseID, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[dto.StockResponse](t, resp).Quantity
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func finalizeBody(q int64) dto.FinalizeRequest {
	return dto.FinalizeRequest{Items: []dto.LineActualRequest{{LineNumber: 1, Quantity: qty(q)}}}
}

// Traslado de 30 desde una bodega con 50: origen 20, destino 30.
func TestTraslado_FinalizarMueveStock(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 50)

	resp := s.call(t, http.MethodPost, "/api/transfers", "bodeguero", dto.CreateTransferRequest{
		FromWarehouseID: bodNor,
		ToWarehouseID:   bodSur,
		Items:           []dto.DraftLineRequest{{ProductID: prodA, Quantity: qty(30)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)
	assert.Equal(t, "DRAFT", draft.Status)
	assert.Equal(t, bodNor, draft.Items[0].SourceWarehouseID)

	// Crear no toca el libro
	assert.True(t, s.quantity(t, bodNor).Equal(qty(50)))

	resp = s.call(t, http.MethodPost, "/api/transfers/"+draft.ID+"/finalize", "bodeguero", finalizeBody(30))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decode[dto.MovementDocumentResponse](t, resp)
	assert.Equal(t, "FINALIZED", done.Status)
	require.NotNil(t, done.FinalizedAt)
	assert.Equal(t, testUserID, done.FinalizedBy)

	assert.True(t, s.quantity(t, bodNor).Equal(qty(20)))
	assert.True(t, s.quantity(t, bodSur).Equal(qty(30)))

	resp = s.call(t, http.MethodGet, "/api/stock/movements?document_id="+draft.ID, "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	journal := decode[[]dto.StockMovementResponse](t, resp)
	require.Len(t, journal, 2)
	total := decimal.Zero
	for _, m := range journal {
		total = total.Add(m.Quantity)
	}
	assert.True(t, total.IsZero(), "un traslado conserva el total")
}

// Entrega de 60 con 50 disponibles: se rechaza al crear y no existe borrador.
func TestEntrega_CrearSinDisponible_Retorna409(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 50)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "vendedor", dto.CreateDeliveryRequest{
		Customer: "Constructora Andes",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(60)}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	require.NotNil(t, body.Details)
	assert.Equal(t, "60", body.Details.Requested)
	assert.Equal(t, "50", body.Details.Available)
	assert.Equal(t, prodA, body.Details.ProductID)

	resp = s.call(t, http.MethodGet, "/api/deliveries", "vendedor", nil)
	list := decode[dto.MovementDocumentListResponse](t, resp)
	assert.Empty(t, list.Items)
}

// Borrador de 40 que queda viejo tras una merma a 30: finalizar falla y el stock no cambia.
func TestEntrega_BorradorViejo_FinalizarRevalida(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 50)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "vendedor", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(40)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodPost, "/api/stock/adjustments", "admin", dto.AdjustStockRequest{
		ProductID: prodA, WarehouseID: bodNor, Delta: qty(-20), Reason: "merma",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "bodeguero", finalizeBody(40))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	require.NotNil(t, body.Details)
	assert.Equal(t, "30", body.Details.Available)
	assert.Equal(t, 1, body.Details.LineNumber)

	assert.True(t, s.quantity(t, bodNor).Equal(qty(30)))

	resp = s.call(t, http.MethodGet, "/api/deliveries/"+draft.ID, "vendedor", nil)
	assert.Equal(t, "DRAFT", decode[dto.MovementDocumentResponse](t, resp).Status)
}

// La segunda finalización del mismo documento se rechaza y no vuelve a descontar.
func TestEntrega_FinalizarDosVeces_Retorna409(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 50)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "admin", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(10)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "bodeguero", finalizeBody(8))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "bodeguero", finalizeBody(8))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_FINALIZED", decode[dto.ErrorResponse](t, resp).Code)

	assert.True(t, s.quantity(t, bodNor).Equal(qty(42)))
}

func TestEntrega_VendedorNoPuedeFinalizar(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 5)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "vendedor", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(5)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "vendedor", finalizeBody(5))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEntrega_CantidadFraccionaria_Retorna400(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 5)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "vendedor", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: decimal.RequireFromString("1.5")}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", decode[dto.ErrorResponse](t, resp).Code)
}

func TestTraslado_MismaBodega_Retorna400(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 5)

	resp := s.call(t, http.MethodPost, "/api/transfers", "bodeguero", dto.CreateTransferRequest{
		FromWarehouseID: bodNor,
		ToWarehouseID:   bodNor,
		Items:           []dto.DraftLineRequest{{ProductID: prodA, Quantity: qty(1)}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)
}

func TestDocumento_Inexistente_Retorna404(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodGet, "/api/transfers/no-existe", "admin", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)

	resp = s.call(t, http.MethodPost, "/api/deliveries/no-existe/finalize", "admin", finalizeBody(1))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// Una entrega no se consulta por la ruta de traslados.
func TestDocumento_TipoEquivocado_Retorna404(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 5)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "admin", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(1)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodGet, "/api/transfers/"+draft.ID, "admin", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Con la entrada bloqueada por otra transacción, finalizar responde 503 con Retry-After.
func TestFinalizar_Ocupado_Retorna503(t *testing.T) {
	s := newTestServer(t, 50*time.Millisecond)
	s.seed(t, bodNor, 10)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "admin", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(3)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		done <- s.store.Run(ctx, func(r inventory.Repos) error {
			if err := r.Stock.Lock(ctx, []entity.StockKey{{ProductID: prodA, WarehouseID: bodNor}}); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "admin", finalizeBody(3))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Equal(t, "BUSY", decode[dto.ErrorResponse](t, resp).Code)

	close(release)
	require.NoError(t, <-done)

	// Reintentar después funciona
	resp = s.call(t, http.MethodPost, "/api/deliveries/"+draft.ID+"/finalize", "admin", finalizeBody(3))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, s.quantity(t, bodNor).Equal(qty(7)))
}

func TestListarTraslados_FiltraPorEstadoYBodega(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 10)

	for i := 0; i < 2; i++ {
		resp := s.call(t, http.MethodPost, "/api/transfers", "bodeguero", dto.CreateTransferRequest{
			FromWarehouseID: bodNor,
			ToWarehouseID:   bodSur,
			Items:           []dto.DraftLineRequest{{ProductID: prodA, Quantity: qty(2)}},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		if i == 0 {
			draft := decode[dto.MovementDocumentResponse](t, resp)
			resp = s.call(t, http.MethodPost, "/api/transfers/"+draft.ID+"/finalize", "bodeguero", finalizeBody(2))
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := s.call(t, http.MethodGet, "/api/transfers?status=draft&warehouse_id="+bodSur, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.MovementDocumentListResponse](t, resp)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "DRAFT", list.Items[0].Status)

	resp = s.call(t, http.MethodGet, "/api/transfers?status=cancelado", "vendedor", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDescargarPDF_Entrega(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 5)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "vendedor", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(2)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodGet, "/api/deliveries/"+draft.ID+"/pdf", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "delivery-")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
