package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// StockHandler consultas del libro de stock, diario y ajustes manuales.
type StockHandler struct {
	uc *inventory.StockUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Delta positivo ingresa mercancía; negativo la retira. Nunca deja stock negativo.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "Producto, bodega y delta"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s, err := h.uc.AdjustStock(c.Context(), inventory.AdjustStockInput{
		UserID:      GetUserID(c),
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Delta:       in.Delta,
		Reason:      in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockResponse(s))
}

// Get godoc
// @Summary      Consultar stock
// @Description  Con product_id y warehouse_id devuelve una entrada (0 si no existe); con uno solo, la lista.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "ID del producto"
// @Param        warehouse_id  query  string  false  "ID de la bodega"
// @Success      200  {object}  dto.StockResponse
// @Success      200  {array}   dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	productID, warehouseID := c.Query("product_id"), c.Query("warehouse_id")

	var (
		list []*entity.Stock
		err  error
	)
	switch {
	case productID != "" && warehouseID != "":
		s, err := h.uc.GetStock(c.Context(), productID, warehouseID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(toStockResponse(s))
	case productID != "":
		list, err = h.uc.ListByProduct(c.Context(), productID)
	case warehouseID != "":
		list, err = h.uc.ListByWarehouse(c.Context(), warehouseID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "indique product_id y/o warehouse_id"})
	}
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toStockResponse(s))
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Diario de movimientos
// @Description  Filtra por document_id, product_id o warehouse_id (en ese orden de prioridad). Orden cronológico.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        document_id   query  string  false  "ID del documento"
// @Param        product_id    query  string  false  "ID del producto"
// @Param        warehouse_id  query  string  false  "ID de la bodega"
// @Param        from          query  string  false  "Desde (RFC3339)"
// @Param        to            query  string  false  "Hasta (RFC3339)"
// @Param        limit         query  int     false  "Límite (default 50)"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.StockMovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	f := inventory.MovementFilter{
		DocumentID:  c.Query("document_id"),
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Limit:       c.QueryInt("limit", 50),
		Offset:      c.QueryInt("offset", 0),
	}
	var err error
	if f.From, err = parseTimeQuery(c, "from"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	if f.To, err = parseTimeQuery(c, "to"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	list, err := h.uc.ListMovements(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockMovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toStockMovementResponse(m))
	}
	return c.JSON(out)
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
