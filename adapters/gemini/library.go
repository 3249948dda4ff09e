package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/domain/repositories"
)

// Ensure Client implements the Library interface.
var _ repositories.Library = (*Client)(nil)

var dictionaryEntrySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"simplified":  {Type: genai.TypeString},
		"traditional": {Type: genai.TypeString},
		"pinyin":      {Type: genai.TypeString},
		"hskLevel":    {Type: genai.TypeInteger},
		"etymology":   {Type: genai.TypeString},
		"meanings":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"components": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"char":    {Type: genai.TypeString},
					"meaning": {Type: genai.TypeString},
					"radical": {Type: genai.TypeBoolean},
				},
				Required: []string{"char", "meaning"},
			},
		},
		"examples": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"chinese":     {Type: genai.TypeString},
					"pinyin":      {Type: genai.TypeString},
					"translation": {Type: genai.TypeString},
				},
				Required: []string{"chinese", "translation"},
			},
		},
		"compounds": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"word":    {Type: genai.TypeString},
					"pinyin":  {Type: genai.TypeString},
					"meaning": {Type: genai.TypeString},
				},
				Required: []string{"word", "meaning"},
			},
		},
	},
	Required: []string{"simplified", "pinyin", "meanings", "components"},
}

var cultureArticleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"chineseTitle":          {Type: genai.TypeString},
		"pinyinTitle":           {Type: genai.TypeString},
		"fullContentChinese":    {Type: genai.TypeString},
		"fullContentTranslated": {Type: genai.TypeString},
		"keyConcepts": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"word":    {Type: genai.TypeString},
					"pinyin":  {Type: genai.TypeString},
					"meaning": {Type: genai.TypeString},
				},
				Required: []string{"word", "pinyin", "meaning"},
			},
		},
		"reflection": {Type: genai.TypeString},
	},
	Required: []string{"chineseTitle", "pinyinTitle", "fullContentChinese", "fullContentTranslated", "keyConcepts", "reflection"},
}

var hskExamSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          {Type: genai.TypeString},
			"question":    {Type: genai.TypeString},
			"content":     {Type: genai.TypeString},
			"options":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"answer":      {Type: genai.TypeString},
			"explanation": {Type: genai.TypeString},
		},
		Required: []string{"id", "question", "options", "answer", "explanation"},
	},
}

// LookupWord generates a full dictionary breakdown for a word or character.
func (c *Client) LookupWord(ctx context.Context, query, locale string) (*entities.DictionaryEntry, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	prompt := fmt.Sprintf(
		"Provide a complete linguistic breakdown of the Chinese word or character %q. All meanings, etymology and translations must be in %s.",
		query, languageName(locale))

	var entry entities.DictionaryEntry
	if err := c.generateJSON(ctx, prompt, dictionaryEntrySchema, &entry); err != nil {
		return nil, fmt.Errorf("dictionary lookup failed: %w", err)
	}

	c.logger.Info("Dictionary lookup completed",
		zap.String("query", query),
		zap.String("simplified", entry.Simplified))
	return &entry, nil
}

// CultureDeepDive generates a bilingual article about a cultural topic.
func (c *Client) CultureDeepDive(ctx context.Context, topic, locale string) (*entities.CultureArticle, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	prompt := fmt.Sprintf(
		"Write an in-depth cultural deep-dive about %q for a Mandarin learner. Include the full article in Chinese, a faithful translation in %s, key vocabulary and a closing reflection.",
		topic, languageName(locale))

	var article entities.CultureArticle
	if err := c.generateJSON(ctx, prompt, cultureArticleSchema, &article); err != nil {
		return nil, fmt.Errorf("culture deep-dive failed: %w", err)
	}

	c.logger.Info("Culture deep-dive completed", zap.String("topic", topic))
	return &article, nil
}

// GenerateHSKExam generates a mock exam for the given HSK level.
func (c *Client) GenerateHSKExam(ctx context.Context, level int, locale string) ([]entities.HSKQuestion, error) {
	if level < 1 || level > 6 {
		return nil, fmt.Errorf("HSK level must be between 1 and 6, got %d", level)
	}

	prompt := fmt.Sprintf(
		"Generate a 10-question HSK level %d mock exam. Mix reading comprehension and vocabulary questions. Explanations must be in %s. Each question needs a unique id, four options and the exact text of the correct option as the answer.",
		level, languageName(locale))

	var questions []entities.HSKQuestion
	if err := c.generateJSON(ctx, prompt, hskExamSchema, &questions); err != nil {
		return nil, fmt.Errorf("HSK exam generation failed: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("HSK exam generation returned no questions")
	}

	c.logger.Info("HSK exam generated",
		zap.Int("level", level),
		zap.Int("questions", len(questions)))
	return questions, nil
}

// generateJSON runs a schema-constrained generation call and unmarshals the
// result into out.
func (c *Client) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	response, err := c.client.Models.GenerateContent(ctx, c.chatModel, contents, config)
	if err != nil {
		return err
	}

	text := responseText(response)
	if text == "" {
		return fmt.Errorf("model returned empty response")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}
