package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// tx acumula escrituras sobre el Store y los bloqueos que tomó.
// Las lecturas combinan lo confirmado con lo acumulado en la propia tx.
type tx struct {
	s *Store

	held  map[string]struct{}
	order []string

	products   map[string]*entity.Product // nil = borrado
	warehouses map[string]entity.Warehouse
	stock      map[entity.StockKey]entity.Stock
	documents  map[string]*entity.MovementDocument
	movements  []entity.StockMovement

	// borrado en cascada por producto
	purgedStock     map[string]struct{}
	purgedLines     map[string]struct{}
	purgedMovements map[string]struct{}
}

func newTx(s *Store) *tx {
	return &tx{
		s:               s,
		held:            make(map[string]struct{}),
		products:        make(map[string]*entity.Product),
		warehouses:      make(map[string]entity.Warehouse),
		stock:           make(map[entity.StockKey]entity.Stock),
		documents:       make(map[string]*entity.MovementDocument),
		purgedStock:     make(map[string]struct{}),
		purgedLines:     make(map[string]struct{}),
		purgedMovements: make(map[string]struct{}),
	}
}

func (t *tx) repos() inventory.Repos {
	b := base{s: t.s, t: t}
	return inventory.Repos{
		Documents: &DocumentRepo{b},
		Stock:     &StockRepo{b},
		Movements: &StockMovementRepo{b},
		Products:  &ProductRepo{b},
	}
}

// lock es reentrante dentro de la misma tx.
func (t *tx) lock(ctx context.Context, name string) error {
	if _, ok := t.held[name]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, name, t.s.lockTimeout); err != nil {
		return err
	}
	t.held[name] = struct{}{}
	t.order = append(t.order, name)
	return nil
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
	t.held = make(map[string]struct{})
}

func (t *tx) dirty() bool {
	return len(t.products) > 0 || len(t.warehouses) > 0 || len(t.stock) > 0 ||
		len(t.documents) > 0 || len(t.movements) > 0 ||
		len(t.purgedStock) > 0 || len(t.purgedLines) > 0 || len(t.purgedMovements) > 0
}

// commit publica todas las escrituras bajo el mutex del Store y después libera los bloqueos,
// de modo que quien tome el bloqueo a continuación ya ve el resultado.
func (t *tx) commit() error {
	defer t.release()
	if !t.dirty() {
		return nil
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range t.products {
		if p == nil {
			continue
		}
		for _, other := range s.products {
			if other.SKU == p.SKU && other.ID != id {
				return domain.ErrDuplicate
			}
		}
	}

	for pid := range t.purgedStock {
		for k := range s.stock {
			if k.ProductID == pid {
				delete(s.stock, k)
			}
		}
	}
	if len(t.purgedLines) > 0 {
		for _, d := range s.documents {
			d.Lines = t.keepLines(d.Lines)
		}
	}
	if len(t.purgedMovements) > 0 {
		kept := s.movements[:0]
		for _, m := range s.movements {
			if _, ok := t.purgedMovements[m.ProductID]; !ok {
				kept = append(kept, m)
			}
		}
		s.movements = kept
	}

	for id, p := range t.products {
		if p == nil {
			delete(s.products, id)
			continue
		}
		s.products[id] = *p
	}
	for id, w := range t.warehouses {
		s.warehouses[id] = w
	}
	for k, v := range t.stock {
		s.stock[k] = v
	}
	for id, d := range t.documents {
		s.documents[id] = d
	}
	s.movements = append(s.movements, t.movements...)
	return nil
}

// ── lecturas combinadas ──────────────────────────────────────────────────────

func (t *tx) product(id string) *entity.Product {
	if p, ok := t.products[id]; ok {
		if p == nil {
			return nil
		}
		c := *p
		return &c
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.products[id]
	if !ok {
		return nil
	}
	return &p
}

func (t *tx) allProducts() []entity.Product {
	t.s.mu.RLock()
	out := make([]entity.Product, 0, len(t.s.products)+len(t.products))
	for id, p := range t.s.products {
		if _, staged := t.products[id]; !staged {
			out = append(out, p)
		}
	}
	t.s.mu.RUnlock()
	for _, p := range t.products {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (t *tx) warehouse(id string) *entity.Warehouse {
	if w, ok := t.warehouses[id]; ok {
		return &w
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	w, ok := t.s.warehouses[id]
	if !ok {
		return nil
	}
	return &w
}

func (t *tx) allWarehouses() []entity.Warehouse {
	t.s.mu.RLock()
	out := make([]entity.Warehouse, 0, len(t.s.warehouses)+len(t.warehouses))
	for id, w := range t.s.warehouses {
		if _, staged := t.warehouses[id]; !staged {
			out = append(out, w)
		}
	}
	t.s.mu.RUnlock()
	for _, w := range t.warehouses {
		out = append(out, w)
	}
	return out
}

func (t *tx) stockEntry(k entity.StockKey) entity.Stock {
	if s, ok := t.stock[k]; ok {
		return s
	}
	if _, purged := t.purgedStock[k.ProductID]; !purged {
		t.s.mu.RLock()
		s, ok := t.s.stock[k]
		t.s.mu.RUnlock()
		if ok {
			return s
		}
	}
	return entity.Stock{ProductID: k.ProductID, WarehouseID: k.WarehouseID, Quantity: decimal.Zero}
}

func (t *tx) stockWhere(match func(entity.StockKey) bool) []*entity.Stock {
	var out []*entity.Stock
	t.s.mu.RLock()
	for k, s := range t.s.stock {
		if _, staged := t.stock[k]; staged {
			continue
		}
		if _, purged := t.purgedStock[k.ProductID]; purged {
			continue
		}
		if match(k) {
			c := s
			out = append(out, &c)
		}
	}
	t.s.mu.RUnlock()
	for k, s := range t.stock {
		if match(k) {
			c := s
			out = append(out, &c)
		}
	}
	sortStock(out)
	return out
}

func (t *tx) keepLines(lines []entity.MovementLine) []entity.MovementLine {
	if len(t.purgedLines) == 0 {
		return lines
	}
	kept := make([]entity.MovementLine, 0, len(lines))
	for _, l := range lines {
		if _, purged := t.purgedLines[l.ProductID]; !purged {
			kept = append(kept, l)
		}
	}
	return kept
}

func (t *tx) document(id string) *entity.MovementDocument {
	if d, ok := t.documents[id]; ok {
		return d.Clone()
	}
	t.s.mu.RLock()
	d := t.s.documents[id].Clone()
	t.s.mu.RUnlock()
	if d == nil {
		return nil
	}
	d.Lines = t.keepLines(d.Lines)
	return d
}

func (t *tx) allDocuments() []*entity.MovementDocument {
	t.s.mu.RLock()
	out := make([]*entity.MovementDocument, 0, len(t.s.documents)+len(t.documents))
	for id, d := range t.s.documents {
		if _, staged := t.documents[id]; staged {
			continue
		}
		c := d.Clone()
		c.Lines = t.keepLines(c.Lines)
		out = append(out, c)
	}
	t.s.mu.RUnlock()
	for _, d := range t.documents {
		out = append(out, d.Clone())
	}
	return out
}

func (t *tx) allMovements() []entity.StockMovement {
	t.s.mu.RLock()
	out := make([]entity.StockMovement, 0, len(t.s.movements)+len(t.movements))
	for _, m := range t.s.movements {
		if _, purged := t.purgedMovements[m.ProductID]; !purged {
			out = append(out, m)
		}
	}
	t.s.mu.RUnlock()
	return append(out, t.movements...)
}
