package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var (
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ repository.WarehouseRepository     = (*WarehouseRepo)(nil)
	_ repository.StockRepository         = (*StockRepo)(nil)
	_ repository.DocumentRepository      = (*DocumentRepo)(nil)
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
)

// base ejecuta cada operación en la tx del repo o, si no hay, en una tx propia de una sola operación.
type base struct {
	s *Store
	t *tx
}

func (b base) do(ctx context.Context, fn func(t *tx) error) error {
	if b.t != nil {
		return fn(b.t)
	}
	return b.s.run(ctx, fn)
}

// ── productos ────────────────────────────────────────────────────────────────

// ProductRepo productos en memoria.
type ProductRepo struct{ base }

// Create guarda el producto; SKU repetido devuelve domain.ErrDuplicate.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	return r.do(ctx, func(t *tx) error {
		if t.product(p.ID) != nil {
			return domain.ErrDuplicate
		}
		for _, other := range t.allProducts() {
			if other.SKU == p.SKU {
				return domain.ErrDuplicate
			}
		}
		c := *p
		t.products[p.ID] = &c
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.do(ctx, func(t *tx) error {
		out = t.product(id)
		return nil
	})
	return out, err
}

// GetBySKU devuelve nil, nil si no existe.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	err := r.do(ctx, func(t *tx) error {
		for _, p := range t.allProducts() {
			if p.SKU == sku {
				c := p
				out = &c
				break
			}
		}
		return nil
	})
	return out, err
}

// List ordena por fecha de creación.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.do(ctx, func(t *tx) error {
		all := t.allProducts()
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.Before(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
		for _, p := range paginate(all, limit, offset) {
			c := p
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// Delete elimina el producto.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return r.do(ctx, func(t *tx) error {
		if t.product(id) == nil {
			return domain.ErrNotFound
		}
		t.products[id] = nil
		return nil
	})
}

// ── bodegas ──────────────────────────────────────────────────────────────────

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct{ base }

// Create guarda la bodega.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	return r.do(ctx, func(t *tx) error {
		if t.warehouse(w.ID) != nil {
			return domain.ErrDuplicate
		}
		t.warehouses[w.ID] = *w
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.do(ctx, func(t *tx) error {
		out = t.warehouse(id)
		return nil
	})
	return out, err
}

// List ordena por fecha de creación.
func (r *WarehouseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	err := r.do(ctx, func(t *tx) error {
		all := t.allWarehouses()
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.Before(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
		for _, w := range paginate(all, limit, offset) {
			c := w
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// ── libro de stock ───────────────────────────────────────────────────────────

// StockRepo libro de stock en memoria.
type StockRepo struct{ base }

// Get devuelve la entrada; inexistente = cantidad 0.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	var out entity.Stock
	err := r.do(ctx, func(t *tx) error {
		out = t.stockEntry(entity.StockKey{ProductID: productID, WarehouseID: warehouseID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByProduct entradas del producto ordenadas por bodega.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error) {
	var out []*entity.Stock
	err := r.do(ctx, func(t *tx) error {
		out = t.stockWhere(func(k entity.StockKey) bool { return k.ProductID == productID })
		return nil
	})
	return out, err
}

// ListByWarehouse entradas de la bodega ordenadas por producto.
func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error) {
	var out []*entity.Stock
	err := r.do(ctx, func(t *tx) error {
		out = t.stockWhere(func(k entity.StockKey) bool { return k.WarehouseID == warehouseID })
		return nil
	})
	return out, err
}

// Lock toma los bloqueos en el orden recibido y los mantiene hasta el fin de la tx.
func (r *StockRepo) Lock(ctx context.Context, keys []entity.StockKey) error {
	return r.do(ctx, func(t *tx) error {
		for _, k := range keys {
			if err := t.lock(ctx, "stock:"+k.String()); err != nil {
				if me, ok := domain.AsMovementError(err); ok {
					me.ProductID = k.ProductID
					me.WarehouseID = k.WarehouseID
				}
				return err
			}
		}
		return nil
	})
}

// ApplyDelta suma delta; un resultado negativo devuelve domain.ErrInsufficientStock sin escribir.
func (r *StockRepo) ApplyDelta(ctx context.Context, key entity.StockKey, delta decimal.Decimal) (*entity.Stock, error) {
	var out entity.Stock
	err := r.do(ctx, func(t *tx) error {
		cur := t.stockEntry(key)
		next := cur.Quantity.Add(delta)
		if next.IsNegative() {
			return domain.InsufficientStock(key.ProductID, key.WarehouseID, delta.Neg(), cur.Quantity)
		}
		out = entity.Stock{ProductID: key.ProductID, WarehouseID: key.WarehouseID, Quantity: next, UpdatedAt: time.Now().UTC()}
		t.stock[key] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteByProduct elimina todas las entradas del producto.
func (r *StockRepo) DeleteByProduct(ctx context.Context, productID string) error {
	return r.do(ctx, func(t *tx) error {
		for k := range t.stock {
			if k.ProductID == productID {
				delete(t.stock, k)
			}
		}
		t.purgedStock[productID] = struct{}{}
		return nil
	})
}

// ── documentos ───────────────────────────────────────────────────────────────

// DocumentRepo entregas y traslados en memoria.
type DocumentRepo struct{ base }

// Create guarda documento y líneas.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.MovementDocument) error {
	return r.do(ctx, func(t *tx) error {
		if t.document(doc.ID) != nil {
			return domain.ErrDuplicate
		}
		c := doc.Clone()
		for i := range c.Lines {
			c.Lines[i].DocumentID = c.ID
		}
		t.documents[doc.ID] = c
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.MovementDocument, error) {
	var out *entity.MovementDocument
	err := r.do(ctx, func(t *tx) error {
		out = t.document(id)
		return nil
	})
	return out, err
}

// GetForUpdate bloquea el documento hasta el fin de la tx y lo devuelve.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.MovementDocument, error) {
	var out *entity.MovementDocument
	err := r.do(ctx, func(t *tx) error {
		if err := t.lock(ctx, "doc:"+id); err != nil {
			if me, ok := domain.AsMovementError(err); ok {
				me.DocumentID = id
			}
			return err
		}
		out = t.document(id)
		return nil
	})
	return out, err
}

// List filtra y ordena por fecha de creación descendente.
func (r *DocumentRepo) List(ctx context.Context, f entity.DocumentFilter) ([]*entity.MovementDocument, error) {
	var out []*entity.MovementDocument
	err := r.do(ctx, func(t *tx) error {
		var matched []*entity.MovementDocument
		for _, d := range t.allDocuments() {
			if f.Kind != "" && d.Kind != f.Kind {
				continue
			}
			if f.Status != "" && d.Status != f.Status {
				continue
			}
			if f.WarehouseID != "" && !touchesWarehouse(d, f.WarehouseID) {
				continue
			}
			matched = append(matched, d)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID < matched[j].ID
		})
		out = paginate(matched, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func touchesWarehouse(d *entity.MovementDocument, warehouseID string) bool {
	if d.SourceWarehouseID == warehouseID || d.DestinationWarehouseID == warehouseID {
		return true
	}
	for _, l := range d.Lines {
		if l.SourceWarehouseID == warehouseID {
			return true
		}
	}
	return false
}

// UpdateOnFinalize escribe estado y cantidades reales; si ya no está en DRAFT devuelve ErrAlreadyFinalized.
func (r *DocumentRepo) UpdateOnFinalize(ctx context.Context, id string, fin entity.Finalization) error {
	return r.do(ctx, func(t *tx) error {
		d := t.document(id)
		if d == nil {
			return &domain.MovementError{Kind: domain.ErrNotFound, DocumentID: id, Reason: "documento no encontrado"}
		}
		if d.IsFinalized() {
			return &domain.MovementError{Kind: domain.ErrAlreadyFinalized, DocumentID: id}
		}
		d.Status = fin.Status
		at := fin.FinalizedAt
		d.FinalizedAt = &at
		d.FinalizedBy = fin.FinalizedBy
		for _, a := range fin.Actuals {
			if l, ok := d.Line(a.LineNumber); ok {
				q := a.Quantity
				l.ActualQuantity = &q
			}
		}
		t.documents[id] = d
		return nil
	})
}

// DeleteLinesByProduct elimina las líneas del producto en todos los documentos.
func (r *DocumentRepo) DeleteLinesByProduct(ctx context.Context, productID string) error {
	return r.do(ctx, func(t *tx) error {
		t.purgedLines[productID] = struct{}{}
		for id, d := range t.documents {
			d.Lines = t.keepLines(d.Lines)
			t.documents[id] = d
		}
		return nil
	})
}

// ── diario ───────────────────────────────────────────────────────────────────

// StockMovementRepo diario de movimientos en memoria (orden de inserción = orden cronológico).
type StockMovementRepo struct{ base }

// Create agrega el registro.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.do(ctx, func(t *tx) error {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		t.movements = append(t.movements, *m)
		return nil
	})
}

// ListByWarehouse registros de la bodega; from/to opcionales.
func (r *StockMovementRepo) ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, func(m entity.StockMovement) bool {
		return m.WarehouseID == warehouseID && inRange(m.CreatedAt, from, to)
	}, limit, offset)
}

// ListByProduct registros del producto; from/to opcionales.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, func(m entity.StockMovement) bool {
		return m.ProductID == productID && inRange(m.CreatedAt, from, to)
	}, limit, offset)
}

// ListByDocument deltas aplicados por un documento.
func (r *StockMovementRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, func(m entity.StockMovement) bool { return m.DocumentID == documentID }, 0, 0)
}

// DeleteByProduct elimina los registros del producto.
func (r *StockMovementRepo) DeleteByProduct(ctx context.Context, productID string) error {
	return r.do(ctx, func(t *tx) error {
		kept := t.movements[:0]
		for _, m := range t.movements {
			if m.ProductID != productID {
				kept = append(kept, m)
			}
		}
		t.movements = kept
		t.purgedMovements[productID] = struct{}{}
		return nil
	})
}

func (r *StockMovementRepo) list(ctx context.Context, match func(entity.StockMovement) bool, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.do(ctx, func(t *tx) error {
		var matched []entity.StockMovement
		for _, m := range t.allMovements() {
			if match(m) {
				matched = append(matched, m)
			}
		}
		for _, m := range paginate(matched, limit, offset) {
			c := m
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}
