package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// The speech backend returns raw PCM: 16-bit signed little-endian samples,
// single channel, 24 kHz.
const (
	SampleRate     = 24000
	Channels       = 1
	bytesPerSample = 2
)

// Buffer is one decoded chunk of speech audio ready for playback.
type Buffer struct {
	PCM        []byte
	SampleRate int
}

// NewBuffer wraps raw PCM bytes, rejecting half samples.
func NewBuffer(pcm []byte) (*Buffer, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("pcm data truncated mid-sample: %d bytes", len(pcm))
	}
	return &Buffer{PCM: pcm, SampleRate: SampleRate}, nil
}

// DecodeBase64PCM decodes a base64 payload from the synthesis call into a
// playable buffer.
func DecodeBase64PCM(data string) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return NewBuffer(raw)
}

// Frames returns the number of samples in the buffer.
func (b *Buffer) Frames() int {
	return len(b.PCM) / bytesPerSample
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	rate := b.SampleRate
	if rate == 0 {
		rate = SampleRate
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(rate)
}

// Samples unpacks the raw bytes into signed 16-bit samples.
func (b *Buffer) Samples() []int16 {
	out := make([]int16, b.Frames())
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b.PCM[i*bytesPerSample:]))
	}
	return out
}
