package repositories

import (
	"context"

	"github.com/hanzigo/backend/domain/entities"
)

// Library abstracts the schema-constrained generation calls behind the
// dictionary, culture and exam features.
type Library interface {
	LookupWord(ctx context.Context, query, locale string) (*entities.DictionaryEntry, error)
	CultureDeepDive(ctx context.Context, topic, locale string) (*entities.CultureArticle, error)
	GenerateHSKExam(ctx context.Context, level int, locale string) ([]entities.HSKQuestion, error)
}
