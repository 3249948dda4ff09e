package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hanzigo/backend/domain/repositories"
)

// Ensure Client implements the SpeechSynthesizer interface.
var _ repositories.SpeechSynthesizer = (*Client)(nil)

// Synthesize converts a tag-stripped text chunk into raw PCM audio (16-bit
// signed little-endian, mono, 24 kHz). Empty audio from the API is reported
// as an error so callers can drop the chunk and keep the queue moving.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText("Say clearly: "+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voiceName},
			},
		},
	}

	response, err := c.client.Models.GenerateContent(ctx, c.speechModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("speech synthesis returned no candidates")
	}

	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			c.logger.Debug("Synthesized speech chunk",
				zap.Int("textLength", len(text)),
				zap.Int("audioBytes", len(part.InlineData.Data)))
			return part.InlineData.Data, nil
		}
	}

	return nil, fmt.Errorf("speech synthesis returned no audio data")
}
