package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/medireminder/internal/config"
	"github.com/vcscsvcscs/medireminder/internal/handler"
	"github.com/vcscsvcscs/medireminder/internal/middleware"
	"github.com/vcscsvcscs/medireminder/internal/notifier"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "medireminder",
	Short: "medireminder - medication reminders with an assistant",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the reminder notifier",
	RunE:  runServe,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the plain-text medication report",
	RunE:  runReport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("medireminder %s\n", version)
	},
}

var (
	reportPDF     string
	reportSummary bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml); environment variables still apply")
	reportCmd.Flags().StringVar(&reportPDF, "pdf", "", "write the PDF report to this path instead of printing text")
	reportCmd.Flags().BoolVar(&reportSummary, "summary", false, "include the assistant summary in the PDF report")

	rootCmd.AddCommand(serveCmd, reportCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
	)

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer a.Close()

	swagger, err := api.GetSwagger()
	if err != nil {
		return fmt.Errorf("failed to load API document: %w", err)
	}
	validator, err := middleware.OpenAPIValidator(swagger, logger)
	if err != nil {
		return fmt.Errorf("failed to build request validator: %w", err)
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-Flow-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.MetricsMiddleware(a.metrics))
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(validator)

	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api.RegisterHandlersWithOptions(r, a.apiHandler(), api.GinServerOptions{
		ErrorHandler: handler.ParameterErrorHandler(logger),
	})

	sinks, err := notifier.BuildSinks(cfg.Notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to configure reminder sinks: %w", err)
	}
	runner := notifier.NewRunner(a.medications, sinks, cfg.Notifier.Interval, cfg.Notifier.Debounce, a.metrics, logger)
	if err := runner.Start(context.Background()); err != nil {
		_ = runner.Stop(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := runner.Stop(ctx); err != nil {
		logger.Error("Failed to stop reminder notifier cleanly", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if reportPDF == "" {
		fmt.Fprint(cmd.OutOrStdout(), a.reports.Text(ctx))
		return nil
	}

	data, err := a.reports.PDF(ctx, service.DateRange{}, reportSummary)
	if err != nil {
		return fmt.Errorf("failed to generate PDF report: %w", err)
	}
	if err := os.WriteFile(reportPDF, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", reportPDF, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d bytes)\n", reportPDF, len(data))
	return nil
}
