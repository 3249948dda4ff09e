package stream

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hanzigo/backend/domain/entities"
)

// The tutor model interleaves plain prose with tagged JSON blocks:
// zero or more [VOCAB]{...}[/VOCAB] spans and at most one trailing
// [ANALYSIS]{...}[/ANALYSIS] span. Only fully closed vocab spans are
// stripped from the visible prose; an analysis tag is stripped from its
// opening tag to the end of the buffer, since analysis only ever appears
// at the very end of a turn.
var (
	vocabSpanPattern       = regexp.MustCompile(`(?s)\[VOCAB\].*?\[/VOCAB\]`)
	vocabPayloadPattern    = regexp.MustCompile(`(?s)\[VOCAB\](.*?)\[/VOCAB\]`)
	analysisTailPattern    = regexp.MustCompile(`(?s)\[ANALYSIS\].*$`)
	analysisPayloadPattern = regexp.MustCompile(`(?s)\[ANALYSIS\](.*?)\[/ANALYSIS\]`)
)

// Reply is the finalized content of a completed model turn.
type Reply struct {
	Text     string
	Vocab    []entities.VocabEntry
	Analysis *entities.Analysis
}

// Parser accumulates the raw fragment stream of one model turn and derives
// the user-visible prose from it. It is owned by a single turn and is not
// safe for concurrent use.
type Parser struct {
	raw    strings.Builder
	logger *zap.Logger
}

// NewParser creates a parser for one streaming turn.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Ingest appends a raw fragment and returns the updated visible prose.
func (p *Parser) Ingest(fragment string) string {
	p.raw.WriteString(fragment)
	return Visible(p.raw.String())
}

// Raw returns the accumulated raw buffer.
func (p *Parser) Raw() string {
	return p.raw.String()
}

// Visible strips all closed vocab spans and the trailing analysis block from
// a raw buffer. Feeding the same buffer in one fragment or many yields the
// same result.
func Visible(raw string) string {
	out := vocabSpanPattern.ReplaceAllString(raw, "")
	out = analysisTailPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Finalize extracts the visible prose, all vocabulary payloads and the
// analysis payload from the complete buffer. Malformed JSON inside a tag is
// dropped, never fatal: a bad vocab entry is skipped, a bad analysis block
// yields no analysis. A vocab tag that never closed is never surfaced.
func (p *Parser) Finalize() Reply {
	raw := p.raw.String()

	var vocab []entities.VocabEntry
	for _, match := range vocabPayloadPattern.FindAllStringSubmatch(raw, -1) {
		var entry entities.VocabEntry
		if err := json.Unmarshal([]byte(match[1]), &entry); err != nil {
			p.logger.Warn("Dropping malformed vocab payload", zap.Error(err))
			continue
		}
		vocab = append(vocab, entry)
	}

	var analysis *entities.Analysis
	if match := analysisPayloadPattern.FindStringSubmatch(raw); match != nil {
		var parsed entities.Analysis
		if err := json.Unmarshal([]byte(match[1]), &parsed); err != nil {
			p.logger.Warn("Dropping malformed analysis payload", zap.Error(err))
		} else {
			analysis = &parsed
		}
	}

	return Reply{
		Text:     Visible(raw),
		Vocab:    vocab,
		Analysis: analysis,
	}
}
