// Package memory implementa los repositorios y el TxRunner en memoria.
// Se usa con STORAGE_DRIVER=memory y en las pruebas del motor; respeta las mismas
// garantías que PostgreSQL: bloqueos por (producto, bodega) con timeout y
// escrituras que se confirman todas o ninguna.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

var (
	_ inventory.TxRunner  = (*Store)(nil)
	_ inventory.Directory = (*Store)(nil)
)

// DefaultLockTimeout espera por bloqueo si no se indica otra.
const DefaultLockTimeout = 5 * time.Second

// Store estado compartido. Las lecturas fuera de transacción ven solo datos confirmados.
type Store struct {
	mu         sync.RWMutex
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
	stock      map[entity.StockKey]entity.Stock
	documents  map[string]*entity.MovementDocument
	movements  []entity.StockMovement

	locks       *keyLocker
	lockTimeout time.Duration
}

// NewStore crea un almacén vacío. lockTimeout <= 0 usa DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		products:    make(map[string]entity.Product),
		warehouses:  make(map[string]entity.Warehouse),
		stock:       make(map[entity.StockKey]entity.Stock),
		documents:   make(map[string]*entity.MovementDocument),
		locks:       newKeyLocker(),
		lockTimeout: lockTimeout,
	}
}

// Run ejecuta fn con repositorios atados a una transacción: si fn falla nada se escribe
// y los bloqueos tomados se liberan; si no, todo se confirma de una vez.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return s.run(ctx, func(t *tx) error { return fn(t.repos()) })
}

func (s *Store) run(ctx context.Context, fn func(t *tx) error) error {
	t := newTx(s)
	if err := fn(t); err != nil {
		t.release()
		return err
	}
	if err := ctx.Err(); err != nil {
		t.release()
		return err
	}
	return t.commit()
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{base{s: s}} }

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{base{s: s}} }

// Stock libro de stock fuera de transacción.
func (s *Store) Stock() *StockRepo { return &StockRepo{base{s: s}} }

// Documents repositorio de entregas y traslados fuera de transacción.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{base{s: s}} }

// Movements diario de movimientos fuera de transacción.
func (s *Store) Movements() *StockMovementRepo { return &StockMovementRepo{base{s: s}} }

// GetProduct implementa inventory.Directory.
func (s *Store) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetWarehouse implementa inventory.Directory.
func (s *Store) GetWarehouse(_ context.Context, id string) (*entity.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortStock(list []*entity.Stock) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ProductID != list[j].ProductID {
			return list[i].ProductID < list[j].ProductID
		}
		return list[i].WarehouseID < list[j].WarehouseID
	})
}
