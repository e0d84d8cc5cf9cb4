package http

import (
	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

func toDocumentResponse(d *entity.MovementDocument) dto.MovementDocumentResponse {
	out := dto.MovementDocumentResponse{
		ID:              d.ID,
		Kind:            string(d.Kind),
		Status:          string(d.Status),
		Customer:        d.Customer,
		FromWarehouseID: d.SourceWarehouseID,
		ToWarehouseID:   d.DestinationWarehouseID,
		CreatedAt:       d.CreatedAt,
		CreatedBy:       d.CreatedBy,
		FinalizedAt:     d.FinalizedAt,
		FinalizedBy:     d.FinalizedBy,
		Items:           make([]dto.MovementLineResponse, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		out.Items = append(out.Items, dto.MovementLineResponse{
			LineNumber:        l.LineNumber,
			ProductID:         l.ProductID,
			SourceWarehouseID: l.SourceWarehouseID,
			RequestedQuantity: l.RequestedQuantity,
			ActualQuantity:    l.ActualQuantity,
		})
	}
	return out
}

func toStockResponse(s *entity.Stock) dto.StockResponse {
	out := dto.StockResponse{ProductID: s.ProductID, WarehouseID: s.WarehouseID, Quantity: s.Quantity}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func toStockMovementResponse(m *entity.StockMovement) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		ID:           m.ID,
		DocumentID:   m.DocumentID,
		DocumentKind: string(m.DocumentKind),
		ProductID:    m.ProductID,
		WarehouseID:  m.WarehouseID,
		Type:         string(m.Type),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
		CreatedBy:    m.CreatedBy,
	}
}
