package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DraftLineRequest línea de un documento al crearlo. warehouse_id solo aplica a entregas.
type DraftLineRequest struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CreateDeliveryRequest body para POST /api/deliveries.
type CreateDeliveryRequest struct {
	Customer string             `json:"customer"`
	Items    []DraftLineRequest `json:"items"`
}

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	FromWarehouseID string             `json:"from_warehouse_id"`
	ToWarehouseID   string             `json:"to_warehouse_id"`
	Items           []DraftLineRequest `json:"items"`
}

// LineActualRequest cantidad real de una línea.
type LineActualRequest struct {
	LineNumber int             `json:"line_number"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// FinalizeRequest body para POST /api/{deliveries|transfers}/:id/finalize.
type FinalizeRequest struct {
	Items []LineActualRequest `json:"items"`
}

// MovementLineResponse línea de documento.
type MovementLineResponse struct {
	LineNumber        int              `json:"line_number"`
	ProductID         string           `json:"product_id"`
	SourceWarehouseID string           `json:"source_warehouse_id"`
	RequestedQuantity decimal.Decimal  `json:"requested_quantity"`
	ActualQuantity    *decimal.Decimal `json:"actual_quantity,omitempty"`
}

// MovementDocumentResponse entrega o traslado con sus líneas.
type MovementDocumentResponse struct {
	ID              string                 `json:"id"`
	Kind            string                 `json:"kind"`
	Status          string                 `json:"status"`
	Customer        string                 `json:"customer,omitempty"`
	FromWarehouseID string                 `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string                 `json:"to_warehouse_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	CreatedBy       string                 `json:"created_by,omitempty"`
	FinalizedAt     *time.Time             `json:"finalized_at,omitempty"`
	FinalizedBy     string                 `json:"finalized_by,omitempty"`
	Items           []MovementLineResponse `json:"items"`
}

// MovementDocumentListResponse lista paginada de documentos.
type MovementDocumentListResponse struct {
	Items []MovementDocumentResponse `json:"items"`
	Page  PageResponse               `json:"page"`
}

// AdjustStockRequest body para POST /api/stock/adjustments.
type AdjustStockRequest struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Delta       decimal.Decimal `json:"delta"`
	Reason      string          `json:"reason"`
}

// StockResponse cantidad de un producto en una bodega.
type StockResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// StockMovementResponse registro del diario de movimientos.
type StockMovementResponse struct {
	ID           string          `json:"id"`
	DocumentID   string          `json:"document_id,omitempty"`
	DocumentKind string          `json:"document_kind,omitempty"`
	ProductID    string          `json:"product_id"`
	WarehouseID  string          `json:"warehouse_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CreatedBy    string          `json:"created_by,omitempty"`
}
