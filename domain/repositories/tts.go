package repositories

import "context"

// SpeechSynthesizer abstracts the text-to-speech call.
type SpeechSynthesizer interface {
	// Synthesize converts a tag-stripped text chunk into raw PCM audio
	// (16-bit signed little-endian, mono, 24 kHz). An empty result is a
	// synthesis failure for that chunk.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
