package main

import (
	"net/http"
	"os"

	"log/slog"

	"github.com/abtswath/rubick/handlers"
	"github.com/abtswath/rubick/lib/catalog"
	"github.com/abtswath/rubick/lib/config"
	"github.com/abtswath/rubick/lib/db"
	"github.com/abtswath/rubick/lib/douban"
	"github.com/abtswath/rubick/lib/health"
	"github.com/abtswath/rubick/lib/importer"
	"github.com/abtswath/rubick/lib/lock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	gdb, err := db.Open(cfg.DatabasePath(), logger)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Error("failed to migrate store", slog.Any("error", err))
		os.Exit(1)
	}

	hub := importer.NewHub()
	imp := importer.New(gdb, hub, lock.New(cfg.DataDir, "import", logger), logger, cfg.DumpURL)
	provider := douban.NewClient(cfg.DoubanBaseURL, cfg.ImageDir(), logger)
	cat := catalog.New(gdb, provider, logger)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", health.Check(gdb))
	router.Route("/api", func(r chi.Router) {
		r.Get("/search", handlers.HandleSearch(cat))
		r.Get("/resources/{id}", handlers.HandleResource(cat))
		r.Get("/favorites", handlers.HandleFavorites(cat))
		r.Put("/favorites/{id}", handlers.HandleFavorite(cat))
		r.Delete("/favorites/{id}", handlers.HandleUnfavorite(cat))
		r.Get("/stats", handlers.HandleStats(cat))
		r.Post("/import", handlers.HandleImport(imp))
		r.Get("/import/events", handlers.HandleEvents(hub))
	})
	router.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.ImageDir()))))

	logger.Info("starting server", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
