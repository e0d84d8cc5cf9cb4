package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/application/usecase"
	"github.com/jhoicas/inventario-movimientos/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	WarehouseUC *usecase.WarehouseUseCase
	Engine      *inventory.MovementEngine
	StockUC     *inventory.StockUseCase
	PDFUC       *inventory.PDFUseCase
	JWTSecret   string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
//
// Roles: admin todo; vendedor crea entregas; bodeguero finaliza entregas y opera traslados.
// Las consultas quedan abiertas a cualquier usuario autenticado.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	adminOnly := RequireRole(jwt.RoleAdmin)
	sellers := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	warehouseStaff := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	// Directorio
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", adminOnly, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", adminOnly, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Delete("/:id", adminOnly, productHandler.Delete)

	// Libro de stock
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.StockUC)
	stock.Get("/", stockHandler.Get)
	stock.Get("/movements", stockHandler.Movements)
	stock.Post("/adjustments", adminOnly, stockHandler.Adjust)

	movementHandler := NewMovementHandler(deps.Engine, deps.PDFUC)

	// Entregas
	deliveries := protected.Group("/deliveries")
	deliveries.Post("/", sellers, movementHandler.CreateDelivery)
	deliveries.Get("/", movementHandler.ListDeliveries)
	deliveries.Get("/:id", movementHandler.GetDelivery)
	deliveries.Get("/:id/pdf", movementHandler.DeliveryPDF)
	deliveries.Post("/:id/finalize", warehouseStaff, movementHandler.FinalizeDelivery)

	// Traslados
	transfers := protected.Group("/transfers")
	transfers.Post("/", warehouseStaff, movementHandler.CreateTransfer)
	transfers.Get("/", movementHandler.ListTransfers)
	transfers.Get("/:id", movementHandler.GetTransfer)
	transfers.Get("/:id/pdf", movementHandler.TransferPDF)
	transfers.Post("/:id/finalize", warehouseStaff, movementHandler.FinalizeTransfer)
}
