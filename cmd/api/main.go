package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/produccion-pesquera/internal/application/production"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
	"github.com/jhoicas/produccion-pesquera/internal/infrastructure/memory"
	"github.com/jhoicas/produccion-pesquera/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/produccion-pesquera/internal/interfaces/http"
	"github.com/jhoicas/produccion-pesquera/pkg/config"
	"github.com/jhoicas/produccion-pesquera/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage.Driver).Msg("inicializar almacenamiento")
	}
	defer closeStore()

	recordUC := production.NewRecordUseCase(store.tx, store.records, store.stock, log.Component("production"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Producción pesquera API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		RecordUC:  recordUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

type storage struct {
	tx      production.TxRunner
	records repository.ProductionRecordRepository
	stock   repository.StockBoxRepository
}

// openStorage arma los adaptadores según STORAGE_DRIVER. En postgres aplica el esquema embebido.
func openStorage(ctx context.Context, cfg *config.Config) (storage, func(), error) {
	if cfg.Storage.Driver == config.StorageMemory {
		db := memory.NewDB()
		return storage{
			tx:      memory.NewTxRunner(db),
			records: memory.NewRecordRepository(db),
			stock:   memory.NewStockBoxRepository(db),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return storage{}, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storage{}, nil, fmt.Errorf("migración del esquema: %w", err)
	}
	return storage{
		tx:      postgres.NewTxRunner(pool),
		records: postgres.NewProductionRecordRepository(pool),
		stock:   postgres.NewStockBoxRepository(pool),
	}, pool.Close, nil
}
