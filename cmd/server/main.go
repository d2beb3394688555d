package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"bidquiz-server/internal/api"
	"bidquiz-server/internal/auth"
	"bidquiz-server/internal/catalog"
	"bidquiz-server/internal/config"
	"bidquiz-server/internal/engine"
	"bidquiz-server/internal/hub"
	"bidquiz-server/internal/logger"
	"bidquiz-server/internal/store"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	cat, err := loadCatalog(ctx, cfg, log)
	if err != nil {
		log.Fatal("load catalog", zap.Error(err))
	}

	if err := auth.EnsureRootAdmin(ctx, st, cfg.RootPassword, log); err != nil {
		log.Fatal("seed root admin", zap.Error(err))
	}

	broadcast := hub.New(log)
	eng := engine.New(st, cat, broadcast, log)
	authority := auth.New(st, cfg.JWTSecret, cfg.TokenTTL, log)
	server := api.New(eng, authority, broadcast, st, cat, log)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("server listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("version", buildVersion),
		zap.String("build_time", buildTime),
		zap.Int("questions", cat.Len()),
	)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.SQLitePath == "" {
		log.Warn("no sqlite path configured, using in-memory store; state is lost on restart")
		return store.NewMemory(), nil
	}
	log.Info("opening sqlite store", zap.String("path", cfg.SQLitePath))
	return store.OpenSQLite(cfg.SQLitePath)
}

func loadCatalog(ctx context.Context, cfg config.Config, log *zap.Logger) (*catalog.Catalog, error) {
	if cfg.CatalogURL != "" {
		return catalog.NewClient(cfg.CatalogURL, log).Fetch(ctx)
	}
	log.Info("loading catalog file", zap.String("path", cfg.CatalogFile))
	return catalog.LoadFile(cfg.CatalogFile)
}
