package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
)

func TestAjuste_SoloAdmin(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodPost, "/api/stock/adjustments", "bodeguero", dto.AdjustStockRequest{
		ProductID: prodA, WarehouseID: bodNor, Delta: qty(5),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAjuste_NoDejaNegativo(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 3)

	resp := s.call(t, http.MethodPost, "/api/stock/adjustments", "admin", dto.AdjustStockRequest{
		ProductID: prodA, WarehouseID: bodNor, Delta: qty(-4),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, resp).Code)
	assert.True(t, s.quantity(t, bodNor).Equal(qty(3)))
}

func TestAjuste_ProductoInexistente_Retorna404(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodPost, "/api/stock/adjustments", "admin", dto.AdjustStockRequest{
		ProductID: "no-existe", WarehouseID: bodNor, Delta: qty(1),
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	require.NotNil(t, body.Details)
	assert.Equal(t, "no-existe", body.Details.ProductID)
}

func TestStock_EntradaSinMovimientosEsCero(t *testing.T) {
	s := newTestServer(t, time.Second)
	assert.True(t, s.quantity(t, bodSur).IsZero())
}

func TestStock_ListarPorProducto(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.seed(t, bodNor, 4)
	s.seed(t, bodSur, 6)

	resp := s.call(t, http.MethodGet, "/api/stock?product_id="+prodA, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]dto.StockResponse](t, resp)
	assert.Len(t, list, 2)
}

func TestStock_SinFiltro_Retorna400(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodGet, "/api/stock", "vendedor", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDiario_FechaInvalida_Retorna400(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodGet, "/api/stock/movements?product_id="+prodA+"&from=ayer", "vendedor", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDiario_RegistraAjustes(t *testing.T) {
	s := newTestServer(t, time.Second)

	resp := s.call(t, http.MethodPost, "/api/stock/adjustments", "admin", dto.AdjustStockRequest{
		ProductID: prodA, WarehouseID: bodNor, Delta: qty(12), Reason: "compra",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.call(t, http.MethodGet, "/api/stock/movements?warehouse_id="+bodNor, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	journal := decode[[]dto.StockMovementResponse](t, resp)
	require.Len(t, journal, 1)
	assert.Equal(t, "ADJUSTMENT", journal[0].Type)
	assert.Equal(t, "compra", journal[0].Reason)
	assert.True(t, journal[0].BalanceAfter.Equal(qty(12)))
}
