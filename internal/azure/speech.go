package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Transcriber turns recorded speech into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// Ensure SpeechServiceClient implements Transcriber
var _ Transcriber = (*SpeechServiceClient)(nil)

const defaultAudioContentType = "audio/wav; codecs=audio/pcm; samplerate=16000"

// SpeechServiceClient wraps the Azure Speech Service short-audio REST API
type SpeechServiceClient struct {
	subscriptionKey string
	region          string
	language        string
	endpoint        string
	httpClient      *http.Client
	logger          *zap.Logger
}

// NewSpeechServiceClient creates a new Azure Speech Service client
func NewSpeechServiceClient(subscriptionKey, region, language string, logger *zap.Logger) (*SpeechServiceClient, error) {
	if subscriptionKey == "" || region == "" {
		return nil, fmt.Errorf("subscriptionKey and region are required")
	}
	if language == "" {
		language = "es-ES"
	}

	return &SpeechServiceClient{
		subscriptionKey: subscriptionKey,
		region:          region,
		language:        language,
		endpoint:        fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// Transcribe sends a short recording to speech-to-text and returns the
// recognised text. An empty contentType defaults to 16kHz PCM WAV.
func (c *SpeechServiceClient) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	c.logger.Info("starting speech-to-text transcription", zap.String("language", c.language))

	// Read audio data from stream
	audioData, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioData) == 0 {
		return "", fmt.Errorf("audio is empty")
	}
	if contentType == "" {
		contentType = defaultAudioContentType
	}

	// Create request to Speech-to-Text REST API
	reqURL := fmt.Sprintf("%s/speech/recognition/conversation/cognitiveservices/v1?language=%s",
		c.endpoint, url.QueryEscape(c.language))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(audioData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	// Send request
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("speech-to-text request failed", zap.Error(err))
		return "", fmt.Errorf("speech-to-text request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check response status
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("speech-to-text request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return "", fmt.Errorf("speech-to-text request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// Parse response
	var result struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
		Offset            int64  `json:"Offset"`
		Duration          int64  `json:"Duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("speech-to-text transcription completed",
		zap.String("status", result.RecognitionStatus),
		zap.Duration("processing_time", time.Since(startTime)),
		zap.Int("audio_size_bytes", len(audioData)),
	)

	if result.RecognitionStatus != "Success" {
		return "", fmt.Errorf("recognition failed with status: %s", result.RecognitionStatus)
	}

	return result.DisplayText, nil
}
