package repositories

import "context"

// ImageRecognizer abstracts character recognition on still images.
type ImageRecognizer interface {
	// RecognizeImage returns the Chinese characters identified in the image,
	// or an empty string when nothing is recognized.
	RecognizeImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
}
