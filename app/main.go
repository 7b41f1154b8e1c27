package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/superman-links/links-bridge/app/api"
	"github.com/superman-links/links-bridge/app/builder"
	"github.com/superman-links/links-bridge/app/bulk"
	"github.com/superman-links/links-bridge/app/cache"
	"github.com/superman-links/links-bridge/app/cfg"
	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/metrics"
	"github.com/superman-links/links-bridge/app/release"
	"github.com/superman-links/links-bridge/app/seo"
	"github.com/superman-links/links-bridge/app/site"
	"github.com/superman-links/links-bridge/app/tasks"
	"github.com/superman-links/links-bridge/app/webhook"
)

const (
	apiKeyLength   = 32
	apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Superman Links bridge", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	profile := site.NewProfileCache(appCfg.SiteFile)
	if err := profile.Run(); err != nil {
		slog.Error("Failed to load site profile", "file", appCfg.SiteFile, "error", err)
		os.Exit(1)
	}

	store, err := newCacheStore(appCfg.RedisAddr)
	if err != nil {
		slog.Error("Failed to connect to cache", "addr", appCfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	posts := database.NewPostStore(db)
	meta := database.NewMetaStore(db)
	options := database.NewOptionStore(db)

	if err := ensureAPIKey(context.Background(), options, appCfg.APIKey); err != nil {
		slog.Error("Failed to set up API key", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector(appCfg.Version)
	resolver := seo.NewResolver(meta, profile)
	codec := builder.NewCodec(posts, meta, resolver, profile, store)
	dispatcher := webhook.NewDispatcher(appCfg.WebhookURL, appCfg.WebhookToken, appCfg.WebhookTimeoutDuration(),
		options, resolver, profile, collector)

	var releases tasks.ReleaseChecker
	var releaseStatus api.ReleaseStatus
	if appCfg.ReleaseFeedURL != "" {
		checker := release.NewChecker(appCfg.ReleaseFeedURL, appCfg.Version, store, appCfg.ReleaseCacheTTLDuration())
		releases = checker
		releaseStatus = checker
	}

	scheduler := tasks.NewScheduler(dispatcher, releases, appCfg.ReleaseFeedURL,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	trigger := webhook.NewTrigger(posts, profile, scheduler)

	handler := api.NewHandler(posts, options, resolver, bulk.NewEngine(posts), codec, trigger,
		profile, releaseStatus, collector, appCfg.Version)
	server := api.NewServer(handler, collector, appCfg.APIPrefix)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening",
			"port", appCfg.Port,
			"namespace", appCfg.APIPrefix+"/"+api.Namespace,
			"webhook_enabled", appCfg.WebhookURL != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func newCacheStore(redisAddr string) (cache.Store, error) {
	if redisAddr == "" {
		slog.Info("Using in-memory cache")
		return cache.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := cache.NewRedisStore(ctx, redisAddr)
	if err != nil {
		return nil, err
	}
	slog.Info("Using Redis cache", "addr", redisAddr)
	return store, nil
}

// ensureAPIKey stores the configured key, or generates one when nothing is
// stored yet. An existing stored key is kept when none is configured.
func ensureAPIKey(ctx context.Context, options database.OptionRepository, configured string) error {
	if configured != "" {
		return options.SetOption(ctx, database.OptionAPIKey, configured)
	}

	stored, err := options.GetOption(ctx, database.OptionAPIKey)
	if err != nil {
		return err
	}
	if stored != "" {
		return nil
	}

	key, err := generateAPIKey()
	if err != nil {
		return err
	}
	if err := options.SetOption(ctx, database.OptionAPIKey, key); err != nil {
		return err
	}

	slog.Info("Generated API key", "key", key)
	return nil
}

func generateAPIKey() (string, error) {
	key := make([]byte, apiKeyLength)
	limit := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate API key: %w", err)
		}
		key[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}
