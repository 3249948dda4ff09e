package audio

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestDecodeBase64PCM(t *testing.T) {
	raw := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	buffer, err := DecodeBase64PCM(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}

	if buffer.Frames() != 3 {
		t.Errorf("Expected 3 frames, got %d", buffer.Frames())
	}

	samples := buffer.Samples()
	if samples[0] != 1 || samples[1] != 32767 || samples[2] != -32768 {
		t.Errorf("Unexpected samples: %v", samples)
	}
}

func TestDecodeBase64PCMRejectsBadInput(t *testing.T) {
	if _, err := DecodeBase64PCM("not-base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}

	if _, err := DecodeBase64PCM(""); err == nil {
		t.Error("Expected error for empty payload")
	}

	odd := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	if _, err := DecodeBase64PCM(odd); err == nil {
		t.Error("Expected error for truncated sample")
	}
}

func TestBufferDuration(t *testing.T) {
	pcm := make([]byte, SampleRate*2) // one second of mono 16-bit audio
	buffer, err := NewBuffer(pcm)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if buffer.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", buffer.Duration())
	}
}
