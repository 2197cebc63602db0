// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

var audioConfig = internal_audio.MIMIC_INTERNAL_AUDIO_CONFIG

// scopeCapacity bounds the live-sample ring feeding the oscilloscope:
// three seconds at the internal rate.
const scopeCapacity = 3 * 16000

// chunk is a captured audio fragment placed at a specific position on the
// timeline. ByteOffset is the byte position relative to Start().
type chunk struct {
	ByteOffset int
	Data       []byte
}

// Engine captures one microphone track per session. Frames are decoded
// from the negotiated codec, normalized to the internal 16kHz mono LINEAR16
// format, and placed on a wall-clock timeline: each chunk lands at the byte
// offset matching WHEN it arrived, so delivery jitter becomes silence gaps
// instead of time compression. Stop releases the track and assembles the
// session into a WAV artifact.
type Engine struct {
	logger    commons.Logger
	resampler internal_audio.Resampler

	mu        sync.Mutex
	active    bool
	startTime time.Time
	chunks    []chunk
	// cursor is the byte position just past the last written byte. Wall-clock
	// placement wins, but the cursor keeps bursty delivery from overlapping.
	cursor  int
	source  CaptureSource
	decoder frameDecoder
	codec   Codec
	drained chan struct{}

	artifact *internal_type.RecordingArtifact

	scope []float64

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an idle recorder.
func NewEngine(logger commons.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:    logger,
		resampler: internal_audio.NewResampler(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start negotiates a codec with the source and begins capture. Starting
// while a capture is active is an error — the previous track must end
// first. A successful Start revokes the previous artifact: the session
// holds at most one take.
func (e *Engine) Start(ctx context.Context, source CaptureSource) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return &internal_type.DeviceError{Op: "start", Err: fmt.Errorf("capture already active")}
	}

	codec, err := NegotiateCodec(source.Codecs())
	if err != nil {
		e.mu.Unlock()
		return err
	}
	decoder, err := newFrameDecoder(codec)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.artifact = nil
	e.chunks = nil
	e.cursor = 0
	e.scope = nil
	e.source = source
	e.decoder = decoder
	e.codec = codec
	e.startTime = e.clock()
	e.active = true
	drained := make(chan struct{})
	e.drained = drained
	e.mu.Unlock()

	e.logger.Infof("recorder: capture started, codec=%s @ %dHz", codec, decoder.Config().SampleRate)

	go e.drain(source, drained)
	return nil
}

// drain consumes frames until the source closes its channel — either the
// engine released the track in Stop or the device ended it remotely.
func (e *Engine) drain(source CaptureSource, drained chan struct{}) {
	defer close(drained)
	for frame := range source.Frames() {
		if err := e.ingest(frame.Payload); err != nil {
			e.logger.Warnf("recorder: dropping frame: %v", err)
		}
	}
	e.mu.Lock()
	// Remote track end without Stop: the mic is gone, but captured chunks
	// stay for Stop to assemble.
	e.active = false
	e.mu.Unlock()
}

func (e *Engine) ingest(payload []byte) error {
	e.mu.Lock()
	decoder := e.decoder
	e.mu.Unlock()
	if decoder == nil {
		return nil
	}

	pcm, err := decoder.DecodeFrame(payload)
	if err != nil {
		return err
	}
	pcm, err = e.resampler.Resample(pcm, decoder.Config(), audioConfig)
	if err != nil {
		return err
	}
	e.push(pcm)
	return nil
}

// durationBytes converts a wall-clock duration to a frame-aligned byte count.
func durationBytes(d time.Duration) int {
	raw := int(d.Seconds() * float64(audioConfig.BytesPerSecond()))
	frameSize := audioConfig.FrameSize()
	return (raw / frameSize) * frameSize
}

// push places normalized audio at the current wall-clock position. Each
// chunk is positioned based on WHEN it arrives, not just appended.
func (e *Engine) push(data []byte) {
	if len(data) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	offset := durationBytes(e.clock().Sub(e.startTime))
	if e.cursor > offset {
		offset = e.cursor
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	e.chunks = append(e.chunks, chunk{ByteOffset: offset, Data: buf})
	e.cursor = offset + len(buf)

	for i := 0; i+1 < len(buf); i += 2 {
		s := int16(binary.LittleEndian.Uint16(buf[i:]))
		e.scope = append(e.scope, float64(s)/32768.0)
	}
	if len(e.scope) > scopeCapacity {
		e.scope = e.scope[len(e.scope)-scopeCapacity:]
	}
}

// Stop releases the capture track, waits for in-flight frames, and
// assembles the take. The WAV spans the full session duration with gaps as
// silence. A session that captured nothing is an error, but the track is
// still released.
func (e *Engine) Stop(ctx context.Context) (*internal_type.RecordingArtifact, error) {
	e.mu.Lock()
	source := e.source
	drained := e.drained
	e.source = nil
	e.drained = nil
	e.mu.Unlock()

	if source == nil {
		return nil, &internal_type.DeviceError{Op: "stop", Err: fmt.Errorf("no active capture")}
	}
	if err := source.Close(); err != nil {
		e.logger.Warnf("recorder: track release: %v", err)
	}
	if drained != nil {
		select {
		case <-drained:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.decoder = nil

	if len(e.chunks) == 0 {
		return nil, fmt.Errorf("no audio chunks to persist")
	}

	sessionBytes := durationBytes(e.clock().Sub(e.startTime))
	totalLen := sessionBytes
	for _, c := range e.chunks {
		if end := c.ByteOffset + len(c.Data); end > totalLen {
			totalLen = end
		}
	}

	pcm := make([]byte, totalLen)
	captured := 0
	for _, c := range e.chunks {
		copy(pcm[c.ByteOffset:], c.Data)
		captured += len(c.Data)
	}
	e.chunks = nil

	duration := float64(totalLen) / float64(audioConfig.BytesPerSecond())
	e.logger.Infof("recorder: persisted take, captured=%d bytes, span=%.2fs, codec=%s", captured, duration, e.codec)

	e.artifact = &internal_type.RecordingArtifact{
		ID:        uuid.NewString(),
		MimeType:  "audio/wav",
		Data:      internal_audio.EncodeWAV(pcm, audioConfig),
		Duration:  duration,
		CreatedAt: e.clock(),
	}
	return e.artifact, nil
}

// Artifact returns the last take, nil when none exists or it was revoked.
func (e *Engine) Artifact() *internal_type.RecordingArtifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifact
}

// Revoke discards the last take.
func (e *Engine) Revoke() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.artifact = nil
}

// Active reports whether a capture track is live.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// ScopeWindow returns the most recent n normalized samples for the live
// oscilloscope, plus whether capture is still running.
func (e *Engine) ScopeWindow(n int) ([]float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > len(e.scope) {
		n = len(e.scope)
	}
	out := make([]float64, n)
	copy(out, e.scope[len(e.scope)-n:])
	return out, e.active
}
