package stream

import (
	"strings"
	"unicode/utf8"
)

// sentenceMarkers are the sentence-final characters that close a speakable
// chunk. Newline counts so list-style replies are spoken line by line.
const sentenceMarkers = "。！？\n"

// NextBoundary returns the byte offset just past the first sentence-final
// marker in text, or -1 when no complete sentence has arrived yet. Chunking
// on sentence boundaries keeps synthesis latency low without producing
// mid-sentence audio.
func NextBoundary(text string) int {
	idx := strings.IndexAny(text, sentenceMarkers)
	if idx < 0 {
		return -1
	}
	_, size := utf8.DecodeRuneInString(text[idx:])
	return idx + size
}
