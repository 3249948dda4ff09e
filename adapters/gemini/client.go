package gemini

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultChatModel       = "gemini-3-pro-preview"
	defaultSpeechModel     = "gemini-2.5-flash-preview-tts"
	defaultTranscribeModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	defaultVisionModel     = "gemini-3-flash-preview"
	defaultVoiceName       = "Kore"
	defaultTemperature     = 0.7
	defaultTimeoutSeconds  = 60
)

// Config holds configuration for the Gemini adapter.
// Required fields:
// - APIKey: Your Gemini API key
// Optional fields default to the models the tutor was tuned against.
type Config struct {
	APIKey          string
	ChatModel       string
	SpeechModel     string
	TranscribeModel string
	VisionModel     string
	VoiceName       string
	Temperature     float32
	TimeoutSeconds  int
}

// ValidateConfig validates the Config.
func ValidateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewConfigFromEnv creates a Config from environment variables.
func NewConfigFromEnv() Config {
	config := Config{
		APIKey:          os.Getenv("GEMINI_API_KEY"),
		ChatModel:       os.Getenv("GEMINI_CHAT_MODEL"),
		SpeechModel:     os.Getenv("GEMINI_SPEECH_MODEL"),
		TranscribeModel: os.Getenv("GEMINI_TRANSCRIBE_MODEL"),
		VisionModel:     os.Getenv("GEMINI_VISION_MODEL"),
		VoiceName:       os.Getenv("GEMINI_VOICE_NAME"),
	}

	if temperatureStr := os.Getenv("GEMINI_TEMPERATURE"); temperatureStr != "" {
		if temperature, err := strconv.ParseFloat(temperatureStr, 32); err == nil && temperature >= 0 && temperature <= 2 {
			config.Temperature = float32(temperature)
		}
	}

	if timeoutStr := os.Getenv("GEMINI_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}

	return config
}

// Client wraps the Gemini API for every generative call the application
// makes: streaming chat, speech synthesis, transcription, image recognition
// and schema-constrained lookups.
type Client struct {
	client          *genai.Client
	logger          *zap.Logger
	chatModel       string
	speechModel     string
	transcribeModel string
	visionModel     string
	voiceName       string
	temperature     float32
	timeoutSeconds  int
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
		logger.Info("Using default chat model", zap.String("model", chatModel))
	}

	speechModel := config.SpeechModel
	if speechModel == "" {
		speechModel = defaultSpeechModel
	}

	transcribeModel := config.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = defaultTranscribeModel
	}

	visionModel := config.VisionModel
	if visionModel == "" {
		visionModel = defaultVisionModel
	}

	voiceName := config.VoiceName
	if voiceName == "" {
		voiceName = defaultVoiceName
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &Client{
		client:          client,
		logger:          logger,
		chatModel:       chatModel,
		speechModel:     speechModel,
		transcribeModel: transcribeModel,
		visionModel:     visionModel,
		voiceName:       voiceName,
		temperature:     temperature,
		timeoutSeconds:  timeoutSeconds,
	}, nil
}

// languageName maps a locale hint to the language the tutor should explain
// things in. Unknown locales fall back to English.
func languageName(locale string) string {
	switch locale {
	case "zh":
		return "Chinese"
	case "id":
		return "Indonesian"
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "de":
		return "German"
	case "ja":
		return "Japanese"
	case "ko":
		return "Korean"
	default:
		return "English"
	}
}
