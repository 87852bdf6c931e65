package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/adapter"
	"sd-prompt-enhancer/backend/internal/api"
	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/enhancer"
	"sd-prompt-enhancer/backend/internal/journal"
	"sd-prompt-enhancer/backend/internal/prompt"
	"sd-prompt-enhancer/backend/pkg/config"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelID),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setup(context.Background(), cfg, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// setup wires the catalog, backend adapter, enhancer and journal into a router.
// Nothing here is fatal: catalog and style-table problems become warnings and
// missing credentials disable submission.
func setup(ctx context.Context, cfg *config.Config, log *zap.Logger) *gin.Engine {
	cat := catalog.New(catalog.Paths{
		CheckpointDir:   cfg.CheckpointDir,
		LoraDir:         cfg.LoraDir,
		StyleDir:        cfg.StyleDir,
		LoraTriggerFile: cfg.LoraTriggerFile,
	}, log)
	cat.Refresh(ctx)

	styles, err := prompt.LoadStyleTable(cfg.StylesFile)
	if err != nil {
		log.Warn("Using built-in style table", zap.String("path", cfg.StylesFile), zap.Error(err))
	}

	llm := adapter.NewLLMAdapter(adapter.Options{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelID,
		Timeout:     cfg.LLMTimeout,
		Temperature: float32(cfg.LLMTemperature),
		Logger:      log,
	})

	credErr := cfg.CredentialsError()
	if credErr != nil {
		log.Error("Submission disabled", zap.String("reason", apperrors.UserMessage(credErr)))
	}

	e := enhancer.New(enhancer.Options{
		Styles:   styles,
		Triggers: cat,
		LLM:      llm,
		Disabled: credErr,
		Logger:   log,
	})

	return api.NewRouter(api.Deps{
		Catalog:  cat,
		Enhancer: e,
		Sessions: enhancer.NewRegistry(e),
		Journal:  journal.New(cfg.OutputFile, log),
		Backend: api.BackendInfo{
			Provider: cfg.Provider,
			Model:    llm.GetModel(),
			Endpoint: llm.Endpoint(),
		},
		Logger: log,
	})
}
