package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/hanzigo/backend/domain/repositories"
)

const (
	defaultLanguageCode = "cmn-Hans-CN"
	defaultSampleRate   = 48000
)

// Config holds configuration for the Google Cloud Speech transcriber.
// Credentials come from the usual GOOGLE_APPLICATION_CREDENTIALS mechanism.
type Config struct {
	LanguageCode string
	SampleRate   int
}

// NewConfigFromEnv creates a Config from environment variables.
func NewConfigFromEnv() Config {
	config := Config{
		LanguageCode: os.Getenv("STT_LANGUAGE_CODE"),
	}
	if sampleRateStr := os.Getenv("STT_SAMPLE_RATE"); sampleRateStr != "" {
		if sampleRate, err := strconv.Atoi(sampleRateStr); err == nil && sampleRate > 0 {
			config.SampleRate = sampleRate
		}
	}
	return config
}

// GoogleTranscriber transcribes complete recordings through Google Cloud
// Speech-to-Text. It is the alternative to the Gemini transcriber, selected
// with STT_PROVIDER=google.
type GoogleTranscriber struct {
	logger       *zap.Logger
	languageCode string
	sampleRate   int
}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

// NewGoogleTranscriber creates a Cloud Speech backed transcriber.
func NewGoogleTranscriber(config Config, logger *zap.Logger) *GoogleTranscriber {
	languageCode := config.LanguageCode
	if languageCode == "" {
		languageCode = defaultLanguageCode
	}
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	return &GoogleTranscriber{
		logger:       logger,
		languageCode: languageCode,
		sampleRate:   sampleRate,
	}
}

// Transcribe sends the whole recording through a single streaming recognize
// session and returns the final transcript. An empty transcript with a nil
// error means no speech was detected.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	encoding, err := encodingForMIMEType(mimeType)
	if err != nil {
		return "", err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(g.sampleRate),
					LanguageCode:    g.languageCode,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audioData,
		},
	}); err != nil {
		return "", fmt.Errorf("failed to send audio data: %w", err)
	}

	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	var transcript string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to receive response: %w", err)
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				transcript = result.Alternatives[0].Transcript
			}
		}
	}

	transcript = strings.TrimSpace(transcript)
	g.logger.Info("Cloud Speech transcription completed",
		zap.Int("audioBytes", len(audioData)),
		zap.Int("transcriptLength", len(transcript)))
	return transcript, nil
}

// encodingForMIMEType maps the recording's MIME type to a Speech API encoding.
func encodingForMIMEType(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch {
	case mimeType == "", strings.HasPrefix(mimeType, "audio/webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case strings.HasPrefix(mimeType, "audio/wav"), strings.HasPrefix(mimeType, "audio/l16"):
		return speechpb.RecognitionConfig_LINEAR16, nil
	case strings.HasPrefix(mimeType, "audio/flac"):
		return speechpb.RecognitionConfig_FLAC, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio MIME type: %s", mimeType)
	}
}
