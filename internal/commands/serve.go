package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatali-fataliyev/spending_insights/api"
	"github.com/fatali-fataliyev/spending_insights/internal/cache"
	"github.com/fatali-fataliyev/spending_insights/internal/config"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/fatali-fataliyev/spending_insights/internal/storage"
	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/spf13/cobra"
)

const purgeInterval = 10 * time.Minute

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel, cfg.AppEnv, cfg.LogDir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Logger.Infof("Starting %s v%s", cfg.ProjectName, cfg.Version)
	logging.Logger.Infof("Environment: %s", cfg.AppEnv)
	if !cfg.IsProduction() {
		logging.Logger.Infof("CORS origins: %v", cfg.AllowedOrigins)
	}

	modelCache := buildModelCache(ctx, cfg)

	analyzer, err := insights.NewAnalyzer(cfg.Analytics, modelCache, logging.Logger)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	handlers := api.NewApi(analyzer, nil, cfg.ProjectName, cfg.Version)
	if cfg.DBDriver != "" {
		db, err := storage.Init(ctx, cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			logging.Logger.Warnf("database connection failed, user insights are disabled: %v", err)
		} else {
			source := storage.NewSQLTransactions(db)
			defer source.Close()
			handlers.Source = source
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handlers.Handler(cfg.APIPrefix, cfg.AllowedOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Starting server on port: %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Infof("Shutting down %s", cfg.ProjectName)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildModelCache picks the in-process cache, redis, or both. It returns
// nil when caching is disabled so every request fits its own model.
func buildModelCache(ctx context.Context, cfg *config.Config) insights.ModelCache {
	var memory *cache.Memory
	if cfg.ModelCacheSize > 0 {
		memory = cache.NewMemory(cfg.ModelCacheSize, cfg.ModelCacheTTL)
		go purgeLoop(ctx, memory)
	}

	var remote *cache.Redis
	if cfg.RedisAddr != "" {
		remote = cache.NewRedis(cfg.RedisAddr, cfg.ModelCacheTTL)
		if err := remote.Ping(ctx); err != nil {
			logging.Logger.Warnf("redis is not reachable, cached models will be refitted: %v", err)
		}
	}

	switch {
	case memory != nil && remote != nil:
		return cache.NewTiered(memory, remote)
	case memory != nil:
		return memory
	case remote != nil:
		return remote
	}
	return nil
}

func purgeLoop(ctx context.Context, memory *cache.Memory) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := memory.Purge(); n > 0 {
				logging.Logger.Debugf("purged %d expired models", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
