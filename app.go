package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/azure"
	"github.com/vcscsvcscs/medireminder/internal/config"
	"github.com/vcscsvcscs/medireminder/internal/handler"
	"github.com/vcscsvcscs/medireminder/internal/metrics"
	"github.com/vcscsvcscs/medireminder/internal/pdf"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired services shared by the CLI commands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   repository.KVStore
	metrics *metrics.Metrics

	assistant   *service.AssistantService
	medications *service.MedicationService
	dashboard   *service.DashboardService
	rewards     *service.RewardService
	reports     *service.ReportService
	data        *service.DataService
}

// newLogger builds the zap logger for the configured environment
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Server.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Logging.Format == "console" || cfg.Logging.Format == "json" {
		zcfg.Encoding = cfg.Logging.Format
	}

	return zcfg.Build()
}

// buildApp opens the ledger store and wires every service. Azure clients
// are only created when configured; otherwise the assistant reports itself
// unavailable and sharing is disabled.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := repository.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}

	// Interface values stay untyped nil when a client is not configured
	var (
		ai     azure.ChatCompleter
		speech azure.Transcriber
		blob   azure.BlobStorage
	)

	if cfg.Azure.OpenAI.Enabled() {
		client, err := azure.NewOpenAIClient(
			cfg.Azure.OpenAI.Endpoint,
			cfg.Azure.OpenAI.APIKey,
			cfg.Azure.OpenAI.Deployment,
			cfg.Azure.OpenAI.APIVersion,
			logger,
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize Azure OpenAI client: %w", err), store.Close())
		}
		ai = client
	} else {
		logger.Warn("Azure OpenAI not configured, assistant features are unavailable")
	}

	if cfg.Azure.Speech.Enabled() {
		client, err := azure.NewSpeechServiceClient(
			cfg.Azure.Speech.SubscriptionKey,
			cfg.Azure.Speech.Region,
			cfg.Azure.Speech.Language,
			logger,
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize Azure Speech Service client: %w", err), store.Close())
		}
		speech = client
	}

	if cfg.Azure.Storage.Enabled() {
		client, err := azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.ReportContainer,
			cfg.Azure.Storage.BlobEndpoint,
			logger,
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize report blob storage client: %w", err), store.Close())
		}
		blob = client
	}

	loc := cfg.Server.Location()
	m := metrics.New()

	ledgers := repository.NewLedgerRepository(store, logger)
	state := service.NewState(ctx, ledgers, logger)
	auditLogger := audit.NewLogger(ledgers, logger)

	assistant := service.NewAssistantService(ai, speech, m, cfg.Assistant.Language, cfg.Assistant.Timeout, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		metrics:     m,
		assistant:   assistant,
		medications: service.NewMedicationService(state, assistant, auditLogger, m, logger),
		dashboard:   service.NewDashboardService(state, loc, logger),
		rewards:     service.NewRewardService(state, auditLogger, logger),
		reports:     service.NewReportService(state, assistant, blob, pdf.NewPDFGenerator(logger), auditLogger, loc, logger),
		data:        service.NewDataService(state, auditLogger, logger),
	}, nil
}

// apiHandler builds the HTTP handlers over the app's services
func (a *app) apiHandler() *handler.APIHandler {
	return &handler.APIHandler{
		Medication: handler.NewMedicationHandler(a.medications, a.logger),
		Dashboard:  handler.NewDashboardHandler(a.dashboard, a.logger),
		Reward:     handler.NewRewardHandler(a.rewards, a.logger),
		Report:     handler.NewReportHandler(a.reports, a.cfg.Server.Location(), a.logger),
		Data:       handler.NewDataHandler(a.data, a.logger),
		Health:     handler.NewHealthHandler(a.store, a.assistant, version, a.logger),
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
