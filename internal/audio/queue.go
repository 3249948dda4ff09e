package audio

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink is the audio output device boundary. Play blocks until the buffer has
// fully played out; Close tears the device down and unblocks any in-flight
// Play.
type Sink interface {
	Play(ctx context.Context, buffer *Buffer) error
	Close() error
}

// SinkFactory creates the output device on first use and again after every
// teardown.
type SinkFactory func() (Sink, error)

// PlaybackQueue plays decoded buffers back-to-back in enqueue order. At most
// one buffer is connected to the sink at any instant; when a buffer finishes,
// the next one starts immediately. StopAll is the cancellation path: it
// clears everything pending and tears down the sink so the next use starts
// from a fresh device.
type PlaybackQueue struct {
	factory SinkFactory
	logger  *zap.Logger

	mu      sync.Mutex
	pending []*Buffer
	playing bool
	sink    Sink
	gen     int
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPlaybackQueue creates an idle queue. The sink is not created until the
// first buffer plays.
func NewPlaybackQueue(factory SinkFactory, logger *zap.Logger) *PlaybackQueue {
	return &PlaybackQueue{
		factory: factory,
		logger:  logger,
	}
}

// Enqueue appends a buffer to the tail. If nothing is currently playing,
// playback starts immediately.
func (q *PlaybackQueue) Enqueue(buffer *Buffer) {
	if buffer == nil {
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, buffer)
	if q.playing {
		q.mu.Unlock()
		return
	}
	q.playing = true
	if q.ctx == nil {
		q.ctx, q.cancel = context.WithCancel(context.Background())
	}
	gen := q.gen
	ctx := q.ctx
	q.mu.Unlock()

	go q.drain(ctx, gen)
}

// Playing reports whether a buffer is currently connected to the sink.
func (q *PlaybackQueue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// StopAll clears the pending queue and tears down the sink entirely. A fresh
// sink is created on the next Enqueue, so bad device state never survives a
// cancellation.
func (q *PlaybackQueue) StopAll() {
	q.mu.Lock()
	q.gen++
	q.pending = nil
	q.playing = false
	sink := q.sink
	q.sink = nil
	cancel := q.cancel
	q.ctx = nil
	q.cancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			q.logger.Warn("Failed to close audio sink", zap.Error(err))
		}
	}
}

// drain pops buffers strictly FIFO and plays each to completion. A failing
// buffer is dropped so one bad chunk never stalls the rest of the queue.
func (q *PlaybackQueue) drain(ctx context.Context, gen int) {
	for {
		q.mu.Lock()
		if q.gen != gen {
			// Superseded by StopAll; the new generation owns the state.
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			q.playing = false
			q.mu.Unlock()
			return
		}
		buffer := q.pending[0]
		q.pending = q.pending[1:]
		sink := q.sink
		q.mu.Unlock()

		if sink == nil {
			created, err := q.factory()
			if err != nil {
				q.logger.Error("Failed to create audio sink, dropping queued audio", zap.Error(err))
				q.mu.Lock()
				if q.gen == gen {
					q.pending = nil
					q.playing = false
				}
				q.mu.Unlock()
				return
			}

			q.mu.Lock()
			if q.gen != gen {
				q.mu.Unlock()
				created.Close()
				return
			}
			q.sink = created
			q.mu.Unlock()
			sink = created
		}

		if err := sink.Play(ctx, buffer); err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("Dropping audio chunk after playback failure", zap.Error(err))
		}
	}
}
