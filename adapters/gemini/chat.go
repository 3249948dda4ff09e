package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/domain/repositories"
)

// Ensure Client implements the ChatModel interface.
var _ repositories.ChatModel = (*Client)(nil)

// tutorSystemPrompt teaches the model the tagged-output protocol the parser
// expects. Prose is spoken/shown; vocab cards and the grammar analysis ride
// inside tags and are stripped before display.
const tutorSystemPrompt = `You are 'Mei', a professional Mandarin Teacher for a student whose native language is %[1]s. Respond in Mandarin where appropriate, but provide all help strictly and naturally in %[1]s.

Output protocol, follow it exactly:
1. Write your conversational reply as plain prose.
2. For each key Chinese word worth studying (at most 3), append a block of the form [VOCAB]{"word":"...","pinyin":"...","meaning":"..."}[/VOCAB]. The meaning must be in %[1]s.
3. If the student's last message contained a grammar mistake, append exactly one block [ANALYSIS]{"original":"...","correction":"...","explanation":"..."}[/ANALYSIS] as the very last thing in your reply. The explanation must be in %[1]s.
4. Never mention the tags or the protocol in the prose itself.`

// StreamReply streams one tutor turn. Fragments are forwarded in arrival
// order; the accumulated stream is the raw tagged buffer.
func (c *Client) StreamReply(ctx context.Context, history []entities.ChatMessage, locale string, onDelta func(string) error) error {
	contents := make([]*genai.Content, 0, len(history))
	for _, message := range history {
		var role genai.Role = genai.RoleUser
		if message.Role == entities.MessageRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(message.Text, role))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			fmt.Sprintf(tutorSystemPrompt, languageName(locale)), genai.RoleUser),
		Temperature: genai.Ptr(c.temperature),
	}

	c.logger.Info("Starting tutor stream",
		zap.String("model", c.chatModel),
		zap.Int("historyLength", len(contents)),
		zap.String("locale", locale))

	fragments := 0
	for chunk, err := range c.client.Models.GenerateContentStream(ctx, c.chatModel, contents, config) {
		if err != nil {
			return fmt.Errorf("tutor stream failed after %d fragments: %w", fragments, err)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			fragments++
			if err := onDelta(part.Text); err != nil {
				return err
			}
		}
	}

	c.logger.Info("Tutor stream completed", zap.Int("fragments", fragments))
	return nil
}
