package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// CacheInvalidator descarta entradas cacheadas del directorio.
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, id string) error
}

// ProductUseCase casos de uso para productos.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner inventory.TxRunner
	cache    CacheInvalidator
	log      zerolog.Logger
}

// NewProductUseCase construye el caso de uso. cache puede ser nil.
func NewProductUseCase(repo repository.ProductRepository, txRunner inventory.TxRunner, cache CacheInvalidator, log zerolog.Logger) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner, cache: cache, log: log}
}

// Create crea un producto. El SKU es único.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return nil, domain.Validation("sku y name son requeridos")
	}
	existing, err := uc.repo.GetBySKU(ctx, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina el producto junto con sus entradas de stock, líneas de documento
// y registros del diario. Los documentos se conservan.
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	err := uc.txRunner.Run(ctx, func(r inventory.Repos) error {
		product, err := r.Products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		entries, err := r.Stock.ListByProduct(ctx, id)
		if err != nil {
			return err
		}
		keys := make([]entity.StockKey, 0, len(entries))
		for _, s := range entries {
			keys = append(keys, s.Key())
		}
		// Sin finalizaciones concurrentes sobre este producto mientras se borra.
		if err := r.Stock.Lock(ctx, entity.SortedUniqueKeys(keys)); err != nil {
			return err
		}
		if err := r.Documents.DeleteLinesByProduct(ctx, id); err != nil {
			return err
		}
		if err := r.Movements.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		if err := r.Stock.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		return r.Products.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if uc.cache != nil {
		if err := uc.cache.InvalidateProduct(ctx, id); err != nil {
			uc.log.Warn().Err(err).Str("product_id", id).Msg("invalidar caché de producto")
		}
	}
	uc.log.Info().Str("product_id", id).Msg("producto eliminado en cascada")
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
