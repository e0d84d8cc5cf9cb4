package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrValidation        = errors.New("entrada inválida")
	ErrInvalidQuantity   = fmt.Errorf("%w: cantidad inválida", ErrValidation)
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrAlreadyFinalized  = errors.New("el documento ya fue finalizado")
	ErrBusy              = errors.New("recurso ocupado, reintente")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// ErrInvalidInput se conserva como alias de ErrValidation para los casos de uso del directorio.
var ErrInvalidInput = ErrValidation

// MovementError detalla un error del motor de movimientos: qué documento, línea,
// producto o bodega lo provocó. Unwrap devuelve el sentinel (Kind) para usar errors.Is.
type MovementError struct {
	Kind        error
	DocumentID  string
	LineNumber  int
	ProductID   string
	WarehouseID string
	Requested   *decimal.Decimal
	Available   *decimal.Decimal
	Reason      string
}

func (e *MovementError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	var parts []string
	if e.DocumentID != "" {
		parts = append(parts, "documento="+e.DocumentID)
	}
	if e.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("línea=%d", e.LineNumber))
	}
	if e.ProductID != "" {
		parts = append(parts, "producto="+e.ProductID)
	}
	if e.WarehouseID != "" {
		parts = append(parts, "bodega="+e.WarehouseID)
	}
	if e.Requested != nil {
		parts = append(parts, "solicitado="+e.Requested.String())
	}
	if e.Available != nil {
		parts = append(parts, "disponible="+e.Available.String())
	}
	if len(parts) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *MovementError) Unwrap() error { return e.Kind }

// Validation construye un error de validación con un motivo legible.
func Validation(reason string) *MovementError {
	return &MovementError{Kind: ErrValidation, Reason: reason}
}

// NotFound construye un ErrNotFound indicando el recurso.
func NotFound(reason string) *MovementError {
	return &MovementError{Kind: ErrNotFound, Reason: reason}
}

// InsufficientStock construye un ErrInsufficientStock con las cantidades involucradas.
func InsufficientStock(productID, warehouseID string, requested, available decimal.Decimal) *MovementError {
	return &MovementError{
		Kind:        ErrInsufficientStock,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Requested:   &requested,
		Available:   &available,
	}
}

// AsMovementError extrae el detalle si err (o algo que envuelve) es un *MovementError.
func AsMovementError(err error) (*MovementError, bool) {
	var me *MovementError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
