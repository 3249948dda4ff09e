package repositories

import "context"

// Transcriber abstracts speech recognition for recorded voice input.
type Transcriber interface {
	// Transcribe converts a complete encoded recording into text. An empty
	// transcript with a nil error means no usable speech was detected.
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)
}
