package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo de documento de movimiento.
type DocumentKind string

// Tipos de documento.
const (
	DocumentKindDelivery DocumentKind = "DELIVERY" // salida hacia un cliente
	DocumentKindTransfer DocumentKind = "TRANSFER" // traslado entre bodegas
)

// ParseDocumentKind acepta solo los valores conocidos (sin distinguir mayúsculas).
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(strings.ToUpper(strings.TrimSpace(s))) {
	case DocumentKindDelivery:
		return DocumentKindDelivery, nil
	case DocumentKindTransfer:
		return DocumentKindTransfer, nil
	}
	return "", fmt.Errorf("tipo de documento desconocido: %q", s)
}

// DocumentStatus estado del documento. Solo existe la transición DRAFT -> FINALIZED.
type DocumentStatus string

// Estados de documento.
const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusFinalized DocumentStatus = "FINALIZED"
)

// ParseDocumentStatus acepta solo DRAFT o FINALIZED.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch DocumentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case DocumentStatusDraft:
		return DocumentStatusDraft, nil
	case DocumentStatusFinalized:
		return DocumentStatusFinalized, nil
	}
	return "", fmt.Errorf("estado de documento desconocido: %q", s)
}

// MovementDocument es una entrega o un traslado con sus líneas.
// Los metadatos no cambian tras la creación; solo Status, FinalizedAt/By y
// ActualQuantity de las líneas se escriben, una vez, al finalizar.
type MovementDocument struct {
	ID     string
	Kind   DocumentKind
	Status DocumentStatus

	// Entrega
	Customer string

	// Traslado
	SourceWarehouseID      string
	DestinationWarehouseID string

	CreatedAt   time.Time
	CreatedBy   string
	FinalizedAt *time.Time
	FinalizedBy string

	Lines []MovementLine
}

// IsFinalized indica si el documento ya aplicó sus deltas al libro.
func (d *MovementDocument) IsFinalized() bool {
	return d.Status == DocumentStatusFinalized
}

// Line devuelve la línea con el número indicado.
func (d *MovementDocument) Line(number int) (*MovementLine, bool) {
	for i := range d.Lines {
		if d.Lines[i].LineNumber == number {
			return &d.Lines[i], true
		}
	}
	return nil, false
}

// Clone devuelve una copia profunda (los stores en memoria no comparten punteros con el llamador).
func (d *MovementDocument) Clone() *MovementDocument {
	if d == nil {
		return nil
	}
	c := *d
	if d.FinalizedAt != nil {
		t := *d.FinalizedAt
		c.FinalizedAt = &t
	}
	c.Lines = make([]MovementLine, len(d.Lines))
	for i, l := range d.Lines {
		c.Lines[i] = l
		if l.ActualQuantity != nil {
			q := *l.ActualQuantity
			c.Lines[i].ActualQuantity = &q
		}
	}
	return &c
}

// MovementLine pertenece exclusivamente a un documento.
type MovementLine struct {
	DocumentID        string
	LineNumber        int // 1..n, orden de creación
	ProductID         string
	SourceWarehouseID string
	RequestedQuantity decimal.Decimal
	ActualQuantity    *decimal.Decimal // nil hasta finalizar
}

// LineActual cantidad real de una línea al finalizar.
type LineActual struct {
	LineNumber int
	Quantity   decimal.Decimal
}

// Finalization datos que se persisten en la transición a FINALIZED.
type Finalization struct {
	Status      DocumentStatus
	Actuals     []LineActual
	FinalizedAt time.Time
	FinalizedBy string
}

// DocumentFilter filtro para listar documentos.
type DocumentFilter struct {
	Kind        DocumentKind
	Status      DocumentStatus // vacío = todos
	WarehouseID string         // origen o destino
	Limit       int
	Offset      int
}
