package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// MovementHandler expone entregas (remisiones) y traslados entre bodegas.
type MovementHandler struct {
	engine *inventory.MovementEngine
	pdf    *inventory.PDFUseCase
}

// NewMovementHandler construye el handler. pdf puede ser nil (sin descarga de PDF).
func NewMovementHandler(engine *inventory.MovementEngine, pdf *inventory.PDFUseCase) *MovementHandler {
	return &MovementHandler{engine: engine, pdf: pdf}
}

// CreateDelivery godoc
// @Summary      Crear entrega en borrador
// @Description  Valida el disponible actual sin reservarlo. No modifica el stock.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDeliveryRequest  true  "Cliente y líneas"
// @Success      201   {object}  dto.MovementDocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *MovementHandler) CreateDelivery(c *fiber.Ctx) error {
	var in dto.CreateDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	doc, err := h.engine.CreateDelivery(c.Context(), inventory.CreateDeliveryInput{
		UserID:   GetUserID(c),
		Customer: in.Customer,
		Lines:    toDraftLineInputs(in.Items),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(doc))
}

// CreateTransfer godoc
// @Summary      Crear traslado en borrador
// @Description  Origen y destino deben ser bodegas distintas. No modifica el stock.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Bodegas y líneas"
// @Success      201   {object}  dto.MovementDocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *MovementHandler) CreateTransfer(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	doc, err := h.engine.CreateTransfer(c.Context(), inventory.CreateTransferInput{
		UserID:          GetUserID(c),
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Lines:           toDraftLineInputs(in.Items),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(doc))
}

// FinalizeDelivery godoc
// @Summary      Finalizar entrega
// @Description  Revalida el disponible y descuenta el stock de forma atómica. Solo una vez por documento.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la entrega"
// @Param        body  body  dto.FinalizeRequest  true  "Cantidad real por línea"
// @Success      200   {object}  dto.MovementDocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/finalize [post]
func (h *MovementHandler) FinalizeDelivery(c *fiber.Ctx) error {
	return h.finalize(c, entity.DocumentKindDelivery)
}

// FinalizeTransfer godoc
// @Summary      Finalizar traslado
// @Description  Descuenta el origen y suma al destino en una sola transacción.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del traslado"
// @Param        body  body  dto.FinalizeRequest  true  "Cantidad real por línea"
// @Success      200   {object}  dto.MovementDocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/finalize [post]
func (h *MovementHandler) FinalizeTransfer(c *fiber.Ctx) error {
	return h.finalize(c, entity.DocumentKindTransfer)
}

// GetDelivery godoc
// @Summary      Obtener entrega por ID
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {object}  dto.MovementDocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [get]
func (h *MovementHandler) GetDelivery(c *fiber.Ctx) error {
	return h.get(c, entity.DocumentKindDelivery)
}

// GetTransfer godoc
// @Summary      Obtener traslado por ID
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.MovementDocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *MovementHandler) GetTransfer(c *fiber.Ctx) error {
	return h.get(c, entity.DocumentKindTransfer)
}

// ListDeliveries godoc
// @Summary      Listar entregas
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        status        query  string  false  "DRAFT o FINALIZED"
// @Param        warehouse_id  query  string  false  "Bodega de alguna línea"
// @Param        limit         query  int     false  "Límite (default 20, máx 100)"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementDocumentListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/deliveries [get]
func (h *MovementHandler) ListDeliveries(c *fiber.Ctx) error {
	return h.list(c, entity.DocumentKindDelivery)
}

// ListTransfers godoc
// @Summary      Listar traslados
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        status        query  string  false  "DRAFT o FINALIZED"
// @Param        warehouse_id  query  string  false  "Bodega origen o destino"
// @Param        limit         query  int     false  "Límite (default 20, máx 100)"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementDocumentListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transfers [get]
func (h *MovementHandler) ListTransfers(c *fiber.Ctx) error {
	return h.list(c, entity.DocumentKindTransfer)
}

// DeliveryPDF godoc
// @Summary      Descargar remisión en PDF
// @Tags         deliveries
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/pdf [get]
func (h *MovementHandler) DeliveryPDF(c *fiber.Ctx) error {
	return h.downloadPDF(c, entity.DocumentKindDelivery)
}

// TransferPDF godoc
// @Summary      Descargar traslado en PDF
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/pdf [get]
func (h *MovementHandler) TransferPDF(c *fiber.Ctx) error {
	return h.downloadPDF(c, entity.DocumentKindTransfer)
}

func (h *MovementHandler) finalize(c *fiber.Ctx, kind entity.DocumentKind) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.FinalizeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	actuals := make([]entity.LineActual, 0, len(in.Items))
	for _, it := range in.Items {
		actuals = append(actuals, entity.LineActual{LineNumber: it.LineNumber, Quantity: it.Quantity})
	}
	input := inventory.FinalizeInput{UserID: GetUserID(c), DocumentID: id, Actuals: actuals}

	var (
		doc *entity.MovementDocument
		err error
	)
	if kind == entity.DocumentKindDelivery {
		doc, err = h.engine.FinalizeDelivery(c.Context(), input)
	} else {
		doc, err = h.engine.FinalizeTransfer(c.Context(), input)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDocumentResponse(doc))
}

func (h *MovementHandler) get(c *fiber.Ctx, kind entity.DocumentKind) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	doc, err := h.engine.GetDocument(c.Context(), kind, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDocumentResponse(doc))
}

func (h *MovementHandler) list(c *fiber.Ctx, kind entity.DocumentKind) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()

	filter := entity.DocumentFilter{
		Kind:        kind,
		WarehouseID: c.Query("warehouse_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	if s := c.Query("status"); s != "" {
		status, err := entity.ParseDocumentStatus(s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		filter.Status = status
	}

	docs, err := h.engine.ListDocuments(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MovementDocumentListResponse{
		Items: make([]dto.MovementDocumentResponse, 0, len(docs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, d := range docs {
		out.Items = append(out.Items, toDocumentResponse(d))
	}
	return c.JSON(out)
}

func (h *MovementHandler) downloadPDF(c *fiber.Ctx, kind entity.DocumentKind) error {
	if h.pdf == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "PDF_DISABLED", Message: "generación de PDF no configurada"})
	}
	data, filename, err := h.pdf.DownloadPDF(c.Context(), kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

func toDraftLineInputs(items []dto.DraftLineRequest) []inventory.DraftLineInput {
	lines := make([]inventory.DraftLineInput, 0, len(items))
	for _, it := range items {
		lines = append(lines, inventory.DraftLineInput{ProductID: it.ProductID, WarehouseID: it.WarehouseID, Quantity: it.Quantity})
	}
	return lines
}
