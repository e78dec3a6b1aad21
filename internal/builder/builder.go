package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/api"
	sessionapi "github.com/protolab/prototype-backend/internal/api/session"
	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/integration/llm"
	"github.com/protolab/prototype-backend/internal/integration/notify"
	"github.com/protolab/prototype-backend/internal/integration/storage"
	"github.com/protolab/prototype-backend/internal/pkg/validator"
	"github.com/protolab/prototype-backend/internal/prompt"
	"github.com/protolab/prototype-backend/internal/repository"
	"github.com/protolab/prototype-backend/internal/usecase/chat"
	"github.com/protolab/prototype-backend/internal/usecase/session"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	sessionRepo := repository.NewSessionPostgres(db)
	messageRepo := repository.NewMessagePostgres(db)
	pageRepo := repository.NewPagePostgres(db)
	historyRepo := repository.NewPageHistoryPostgres(db)
	resourceRepo := repository.NewResourcePostgres(db)
	logger.Info("Repositories initialized")

	// Initialize external service connectors (with mock support)
	var llmConnector chat.ChatCompletionProvider
	var objectStore session.ObjectStore

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
		objectStore = storage.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = llm.NewConnector(cfg.LLMConnectorCfg, logger)
		objectStore = storage.NewConnector(cfg.StorageConnectorCfg, logger)
	}

	// Initialize the optional notification channel
	var notifier chat.Notifier
	if cfg.TelegramCfg.Enabled {
		tgNotifier, err := notify.NewTelegramNotifier(cfg.TelegramCfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize telegram notifier: %w", err)
		}
		notifier = tgNotifier
		logger.Info("Telegram notifications enabled")
	}

	// Initialize validators
	resourceValidator := validator.NewResourceValidator(cfg.ResourceUploadCfg)
	logger.Info("Validators initialized")

	// Initialize use cases
	promptBuilder := prompt.NewBuilder(messageRepo, cfg.HistoryLimit)

	chatUC := chat.NewUsecase(
		sessionRepo,
		messageRepo,
		pageRepo,
		historyRepo,
		promptBuilder,
		llmConnector,
		notifier,
		logger,
	)

	sessionUC := session.NewUsecase(
		sessionRepo,
		messageRepo,
		pageRepo,
		historyRepo,
		resourceRepo,
		objectStore,
		resourceValidator,
		logger,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	sessionHandler := sessionapi.NewHandler(sessionUC, chatUC, resourceValidator, cfg.ResourceUploadCfg)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(sessionHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Write timeout is disabled because chat turns
	// stream for as long as the model talks.
	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:      server,
		db:          db,
		generations: chatUC,
		logger:      logger,
	}, nil
}
