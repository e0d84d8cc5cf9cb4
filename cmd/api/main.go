package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	_ "github.com/jhoicas/inventario-movimientos/docs"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/application/usecase"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/events"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventario-movimientos/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-movimientos/internal/interfaces/http"
	"github.com/jhoicas/inventario-movimientos/pkg/config"
	"github.com/jhoicas/inventario-movimientos/pkg/logger"
)

// storage repositorios fuera de transacción más el runner transaccional del driver elegido.
type storage struct {
	txRunner   inventory.TxRunner
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	stock      repository.StockRepository
	documents  repository.DocumentRepository
	movements  repository.StockMovementRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Storage.Driver).
		Dur("lock_timeout", cfg.Engine.LockTimeout).
		Msg("iniciando aplicación")
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer store.close()

	// Directorio: lectura directa o con caché Redis si está configurado.
	var directory inventory.Directory = cache.NewDirectory(nil, store.products, store.warehouses, 0, log.Component("cache"))
	var invalidator usecase.CacheInvalidator
	if cfg.Redis.Enabled() {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		cached := cache.NewDirectory(client, store.products, store.warehouses, cfg.Redis.TTL, log.Component("cache"))
		directory, invalidator = cached, cached
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("caché de directorio activo")
	}

	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	if cfg.NATS.Enabled() {
		nc, err := events.Connect(cfg.NATS.URL, cfg.App.Name, log.Component("events"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a NATS")
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		log.Info().Str("url", cfg.NATS.URL).Str("prefix", cfg.NATS.SubjectPrefix).Msg("publicación de eventos activa")
	}

	engine := inventory.NewMovementEngine(
		store.txRunner,
		store.documents,
		inventory.NewAvailabilityCalculator(store.stock),
		directory,
		publisher,
		log.Component("engine"),
	)
	stockUC := inventory.NewStockUseCase(store.txRunner, store.stock, store.movements, directory, log.Component("stock"))
	pdfUC := inventory.NewPDFUseCase(engine, directory, infrapdf.NewMarotoNoteGenerator(cfg.App.Name))
	productUC := usecase.NewProductUseCase(store.products, store.txRunner, invalidator, log.Component("products"))
	warehouseUC := usecase.NewWarehouseUseCase(store.warehouses)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.AccessLog(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Movimientos API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   productUC,
		WarehouseUC: warehouseUC,
		Engine:      engine,
		StockUC:     stockUC,
		PDFUC:       pdfUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		s := memory.NewStore(cfg.Engine.LockTimeout)
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &storage{
			txRunner:   s,
			products:   s.Products(),
			warehouses: s.Warehouses(),
			stock:      s.Stock(),
			documents:  s.Documents(),
			movements:  s.Movements(),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, postgres.SessionSettings{
		ApplicationName:  cfg.App.Name,
		LockTimeout:      cfg.Engine.LockTimeout,
		StatementTimeout: cfg.DB.StatementTimeout,
	})
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &storage{
		txRunner:   postgres.NewTxRunner(pool, cfg.Engine.LockTimeout),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		stock:      postgres.NewStockRepository(pool),
		documents:  postgres.NewDocumentRepository(pool),
		movements:  postgres.NewStockMovementRepository(pool),
		close:      pool.Close,
	}, nil
}
