package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifica una entrada del libro de stock.
type StockKey struct {
	ProductID   string
	WarehouseID string
}

// String devuelve "producto/bodega"; se usa como llave de bloqueo.
func (k StockKey) String() string {
	return k.ProductID + "/" + k.WarehouseID
}

// Stock representa la cantidad actual de un producto en una bodega.
// Quantity es siempre un entero >= 0; una entrada inexistente equivale a 0.
type Stock struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	UpdatedAt   time.Time
}

// Key devuelve la llave (producto, bodega) de la entrada.
func (s *Stock) Key() StockKey {
	return StockKey{ProductID: s.ProductID, WarehouseID: s.WarehouseID}
}

// SortedUniqueKeys ordena y elimina duplicados. Los bloqueos se adquieren siempre
// en este orden para que dos transacciones no se bloqueen mutuamente.
func SortedUniqueKeys(keys []StockKey) []StockKey {
	seen := make(map[StockKey]struct{}, len(keys))
	out := make([]StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out
}
