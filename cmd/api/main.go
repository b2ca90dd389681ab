package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/cache"
	"server/internal/faceswap"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/storage"
	"server/internal/tryon"
	"server/internal/upload"
	"server/internal/watermark"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	resultStore, err := storage.NewFileStore(cfg.ResultStorePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare result store")
	}

	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	catalogRepo := repo.NewCatalogRepository(sqlRunner)
	catalogCache := cache.NewCatalogCache(redisClient, cfg.CatalogCacheTTL)
	recents := cache.NewRecentsStore(redisClient, cfg.RecentsLimit)

	var provider faceswap.Provider
	switch strings.ToLower(cfg.SwapProvider) {
	case "vmodel":
		provider = faceswap.NewVModelProvider(faceswap.VModelOptions{
			BaseURL:  cfg.VModelBaseURL,
			APIToken: cfg.VModelToken,
			Version:  cfg.VModelVersion,
		})
	default:
		provider = faceswap.NewPiAPIProvider(faceswap.PiAPIOptions{
			BaseURL: cfg.PiAPIBaseURL,
			APIKey:  cfg.PiAPIKey,
		})
	}
	logger.Info().Str("provider", provider.Name()).Msg("swap provider configured")

	orch := faceswap.NewOrchestrator(faceswap.OrchestratorOptions{
		Provider: provider,
		Interval: cfg.PollInterval,
		MaxPolls: cfg.MaxPolls,
		Logger:   logger,
	})

	tryonService := tryon.NewService(tryon.ServiceOptions{
		Orchestrator: orch,
		Repo:         catalogRepo,
		CatalogCache: catalogCache,
		Recents:      recents,
		Store:        resultStore,
		Watermark: watermark.Options{
			Text:    cfg.WatermarkText,
			Quality: cfg.WatermarkQuality,
		},
		JobRetention: cfg.JobRetention,
		Logger:       logger,
	})

	app := &handlers.App{
		Log:   logger,
		Tryon: tryonService,
		TransientUploads: upload.NewImgBBClient(upload.ImgBBOptions{
			BaseURL:           cfg.ImgBBBaseURL,
			APIKey:            cfg.ImgBBKey,
			ExpirationSeconds: cfg.TransientUploadExpiry,
		}),
		CatalogUploads: upload.NewFreeImageClient(upload.FreeImageOptions{
			BaseURL: cfg.FreeImageBaseURL,
			APIKey:  cfg.FreeImageKey,
		}),
		Repo:                  catalogRepo,
		CatalogCache:          catalogCache,
		MaxUploadBytes:        cfg.MaxUploadBytes,
		MaxCatalogUploadBytes: cfg.MaxCatalogUploadBytes,
		ProviderMaxDimension:  cfg.ProviderMaxDimension,
		RecentsLimit:          cfg.RecentsLimit,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AdminKey:        cfg.AdminKey,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
