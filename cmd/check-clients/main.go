// Command check-clients exercises the configured external services once:
// the ledger store, Azure OpenAI, Speech and the report container.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/vcscsvcscs/medireminder/internal/azure"
	"github.com/vcscsvcscs/medireminder/internal/config"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "config file; environment variables still apply")
	audioPath := flag.String("audio", "", "recording to transcribe (wav, webm, ogg)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := 0
	run := func(name string, enabled bool, check func() error) {
		if !enabled {
			logger.Info("skipped, not configured", zap.String("check", name))
			return
		}
		if err := check(); err != nil {
			failed++
			logger.Error("check failed", zap.String("check", name), zap.Error(err))
			return
		}
		logger.Info("check passed", zap.String("check", name))
	}

	run("storage", true, func() error { return checkStorage(ctx, cfg, logger) })
	run("openai", cfg.Azure.OpenAI.Enabled(), func() error { return checkOpenAI(ctx, cfg, logger) })
	run("speech", cfg.Azure.Speech.Enabled() && *audioPath != "", func() error {
		return checkSpeech(ctx, cfg, *audioPath, logger)
	})
	run("blob", cfg.Azure.Storage.Enabled(), func() error { return checkBlob(ctx, cfg, logger) })

	if failed > 0 {
		os.Exit(1)
	}
}

func checkStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := repository.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	logger.Info("ledger store reachable",
		zap.String("driver", cfg.Storage.Driver),
		zap.Strings("keys", keys),
	)
	return nil
}

func checkOpenAI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := azure.NewOpenAIClient(
		cfg.Azure.OpenAI.Endpoint,
		cfg.Azure.OpenAI.APIKey,
		cfg.Azure.OpenAI.Deployment,
		cfg.Azure.OpenAI.APIVersion,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a pharmacist. Reply in one short sentence."),
		openai.UserMessage("What is paracetamol usually taken for?"),
	}

	response, err := client.Complete(ctx, messages)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	logger.Info("OpenAI response received",
		zap.String("response", response),
		zap.Int("response_length", len(response)),
	)
	return nil
}

func checkSpeech(ctx context.Context, cfg *config.Config, audioPath string, logger *zap.Logger) error {
	client, err := azure.NewSpeechServiceClient(
		cfg.Azure.Speech.SubscriptionKey,
		cfg.Azure.Speech.Region,
		cfg.Azure.Speech.Language,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Speech client: %w", err)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	text, err := client.Transcribe(ctx, bytes.NewReader(audio), contentTypeFor(audioPath))
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	logger.Info("Transcription received", zap.String("text", text))
	return nil
}

func checkBlob(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		cfg.Azure.Storage.ReportContainer,
		cfg.Azure.Storage.BlobEndpoint,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	payload := []byte("medireminder connectivity check " + time.Now().Format(time.RFC3339))
	name := fmt.Sprintf("check-%d.txt", time.Now().Unix())

	blobName, err := client.UploadReport(ctx, name, payload, "text/plain")
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	logger.Info("Uploaded test blob", zap.String("url", client.BlobURL(blobName)))

	got, err := client.DownloadReport(ctx, blobName)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return fmt.Errorf("downloaded %d bytes, expected %d", len(got), len(payload))
	}
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "audio/wav"
	}
}
