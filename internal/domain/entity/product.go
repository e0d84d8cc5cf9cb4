package entity

import "time"

// Product representa un producto o SKU del inventario.
// El motor de movimientos solo lo referencia; nunca lo modifica.
type Product struct {
	ID          string
	SKU         string // código único
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
