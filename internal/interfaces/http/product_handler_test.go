package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
)

func TestProducto_CrearYDuplicado(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodPost, "/api/products", "admin", dto.CreateProductRequest{SKU: "SKU-B", Name: "Arena"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.ProductResponse](t, resp)
	assert.NotEmpty(t, created.ID)

	resp = s.call(t, http.MethodPost, "/api/products", "admin", dto.CreateProductRequest{SKU: "SKU-B", Name: "Otra"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decode[dto.ErrorResponse](t, resp).Code)

	resp = s.call(t, http.MethodPost, "/api/products", "vendedor", dto.CreateProductRequest{SKU: "SKU-C", Name: "Grava"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProducto_EliminarEnCascada(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 10)

	resp := s.call(t, http.MethodPost, "/api/deliveries", "admin", dto.CreateDeliveryRequest{
		Customer: "Cliente",
		Items:    []dto.DraftLineRequest{{ProductID: prodA, WarehouseID: bodNor, Quantity: qty(2)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[dto.MovementDocumentResponse](t, resp)

	resp = s.call(t, http.MethodDelete, "/api/products/"+prodA, "admin", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodGet, "/api/products/"+prodA, "admin", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodGet, "/api/stock?warehouse_id="+bodNor, "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]dto.StockResponse](t, resp))

	// El documento sobrevive sin la línea del producto borrado
	resp = s.call(t, http.MethodGet, "/api/deliveries/"+draft.ID, "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[dto.MovementDocumentResponse](t, resp).Items)

	resp = s.call(t, http.MethodDelete, "/api/products/"+prodA, "admin", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBodega_CrearYListar(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodPost, "/api/warehouses", "admin", dto.CreateWarehouseRequest{Name: "Centro"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodPost, "/api/warehouses", "admin", dto.CreateWarehouseRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodGet, "/api/warehouses?limit=10", "bodeguero", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.WarehouseListResponse](t, resp)
	assert.Len(t, list.Items, 3)
	assert.Equal(t, 10, list.Page.Limit)
}
