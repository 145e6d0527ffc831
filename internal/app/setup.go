// Package app contains the application setup for the inventory service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abgdnv/goinventory/internal/config"
	"github.com/abgdnv/goinventory/internal/service"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/abgdnv/goinventory/internal/transport/rest"
	"github.com/abgdnv/goinventory/pkg/server"
)

type Dependencies struct {
	InventoryService service.InventoryService
	Store            store.InventoryStore
	Logger           *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *Dependencies {
	pgStore := store.NewStore(dbPool)
	iService := service.NewService(pgStore, cfg.Inventory.Rate())

	return &Dependencies{
		InventoryService: iService,
		Store:            pgStore,
		Logger:           logger,
	}
}

// SetupHttpHandler initializes the HTTP server and routes for the inventory service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the inventory service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	inventoryHandler := rest.NewHandler(deps.InventoryService, deps.Logger)
	inventoryHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the inventory service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
