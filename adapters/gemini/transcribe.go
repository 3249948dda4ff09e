package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hanzigo/backend/domain/repositories"
)

// Ensure Client implements the recognition interfaces.
var (
	_ repositories.Transcriber     = (*Client)(nil)
	_ repositories.ImageRecognizer = (*Client)(nil)
)

// Transcribe converts a complete encoded recording into text. An empty
// transcript is not an error: the caller treats it as "no usable speech"
// and stays put.
func (c *Client) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(audioData, mimeType),
		genai.NewPartFromText("Transcribe the Chinese."),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := c.client.Models.GenerateContent(ctx, c.transcribeModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(responseText(response))
	c.logger.Info("Transcription completed",
		zap.Int("audioBytes", len(audioData)),
		zap.Int("transcriptLength", len(transcript)))
	return transcript, nil
}

// RecognizeImage returns the Chinese characters identified in a still image.
func (c *Client) RecognizeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if len(imageData) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(imageData, mimeType),
		genai.NewPartFromText("Identify characters."),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("image recognition failed: %w", err)
	}

	return strings.TrimSpace(responseText(response)), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}
