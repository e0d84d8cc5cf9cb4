package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ inventory.Directory = (*Directory)(nil)

// Directory resuelve productos y bodegas con lectura a través de Redis.
// Con client nil consulta siempre los repositorios. Las fallas de Redis solo se registran;
// los "no existe" no se cachean para que un alta se vea de inmediato.
type Directory struct {
	client     *redis.Client
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	ttl        time.Duration
	log        zerolog.Logger
}

// NewDirectory construye el directorio cacheado.
func NewDirectory(client *redis.Client, products repository.ProductRepository, warehouses repository.WarehouseRepository, ttl time.Duration, log zerolog.Logger) *Directory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Directory{client: client, products: products, warehouses: warehouses, ttl: ttl, log: log}
}

func productKey(id string) string   { return "directory:product:" + id }
func warehouseKey(id string) string { return "directory:warehouse:" + id }

// GetProduct devuelve nil, nil si el producto no existe.
func (d *Directory) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if d.get(ctx, productKey(id), &p) {
		return &p, nil
	}
	found, err := d.products.GetByID(ctx, id)
	if err != nil || found == nil {
		return found, err
	}
	d.set(ctx, productKey(id), found)
	return found, nil
}

// GetWarehouse devuelve nil, nil si la bodega no existe.
func (d *Directory) GetWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	if d.get(ctx, warehouseKey(id), &w) {
		return &w, nil
	}
	found, err := d.warehouses.GetByID(ctx, id)
	if err != nil || found == nil {
		return found, err
	}
	d.set(ctx, warehouseKey(id), found)
	return found, nil
}

// InvalidateProduct descarta el producto cacheado (tras un borrado).
func (d *Directory) InvalidateProduct(ctx context.Context, id string) error {
	if d.client == nil {
		return nil
	}
	return d.client.Del(ctx, productKey(id)).Err()
}

func (d *Directory) get(ctx context.Context, key string, dst any) bool {
	if d.client == nil {
		return false
	}
	raw, err := d.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.log.Warn().Err(err).Str("key", key).Msg("leer caché del directorio")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("entrada de caché ilegible")
		return false
	}
	return true
}

func (d *Directory) set(ctx context.Context, key string, v any) {
	if d.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.client.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("guardar caché del directorio")
	}
}
