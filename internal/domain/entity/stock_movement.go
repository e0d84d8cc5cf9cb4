package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovementType tipo de registro en el diario de movimientos.
type StockMovementType string

// Tipos de movimiento de stock.
const (
	StockMovementDeliveryOut StockMovementType = "DELIVERY_OUT" // salida por entrega a cliente
	StockMovementTransferOut StockMovementType = "TRANSFER_OUT" // salida de bodega origen
	StockMovementTransferIn  StockMovementType = "TRANSFER_IN"  // entrada en bodega destino
	StockMovementAdjustment  StockMovementType = "ADJUSTMENT"   // ajuste manual (+/-)
)

// StockMovement es un registro inmutable del diario: un delta aplicado al libro de stock.
// DocumentID vacío indica un ajuste manual.
type StockMovement struct {
	ID           string
	DocumentID   string
	DocumentKind DocumentKind
	ProductID    string
	WarehouseID  string
	Type         StockMovementType
	Quantity     decimal.Decimal // positivo entrada, negativo salida
	BalanceAfter decimal.Decimal
	Reason       string
	CreatedAt    time.Time
	CreatedBy    string
}
