// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_waveform

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("waveform-test"), commons.Level("error"))
	require.NoError(t, err)
	return logger
}

// sineBuffer decodes a 440Hz PCM16 tone of the given duration.
func sineBuffer(t *testing.T, seconds float64) *internal_audio.DecodedAudio {
	t.Helper()
	cfg := internal_audio.MIMIC_INTERNAL_AUDIO_CONFIG
	frames := int(seconds * float64(cfg.SampleRate))
	pcm := make([]byte, frames*cfg.FrameSize())
	for i := 0; i < frames; i++ {
		s := int16(20000 * math.Sin(2*math.Pi*440*float64(i)/float64(cfg.SampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	decoded, err := internal_audio.DecodeWAV(internal_audio.EncodeWAV(pcm, cfg))
	require.NoError(t, err)
	return decoded
}

func TestRenderEnvelopeDimensions(t *testing.T) {
	r := NewRenderer(newTestLogger(t), 300, 80)
	frame, err := r.RenderEnvelope(sineBuffer(t, 1.0), Overlay{Playhead: -1})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestRenderEnvelopeNilBuffer(t *testing.T) {
	r := NewRenderer(newTestLogger(t), 120, 40)
	frame, err := r.RenderEnvelope(nil, Overlay{Playhead: -1})
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(frame))
	assert.NoError(t, err)
}

func TestRenderEnvelopeWithOverlay(t *testing.T) {
	r := NewRenderer(newTestLogger(t), 200, 60)
	sel := &internal_type.SelectionRange{StartTime: 0.25, EndTime: 0.75}
	frame, err := r.RenderEnvelope(sineBuffer(t, 1.0), Overlay{Selection: sel, Playhead: 0.5})
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(frame))
	assert.NoError(t, err)
}

func TestEnvelopeReductionBounds(t *testing.T) {
	r := NewRenderer(newTestLogger(t), 100, 40)
	cols := r.envelope(sineBuffer(t, 1.0))
	require.Len(t, cols, 100)
	for _, col := range cols {
		assert.LessOrEqual(t, col.min, col.max)
		assert.GreaterOrEqual(t, col.min, -1.0)
		assert.LessOrEqual(t, col.max, 1.0)
	}
	// A full-rate sine spans most of the vertical range in every column.
	assert.Greater(t, cols[50].max, 0.3)
	assert.Less(t, cols[50].min, -0.3)
}

func TestRenderScopeFrame(t *testing.T) {
	r := NewRenderer(newTestLogger(t), 160, 48)
	window := make([]float64, 512)
	for i := range window {
		window[i] = math.Sin(float64(i) / 20)
	}
	frame, err := r.RenderScopeFrame(window)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())

	// Degenerate windows still render a flat trace.
	frame, err = r.RenderScopeFrame(nil)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(frame))
	assert.NoError(t, err)
}

// countingTap reports active for a fixed number of windows, then inactive.
type countingTap struct {
	mu        sync.Mutex
	remaining int
}

func (c *countingTap) ScopeWindow(n int) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining--
	return make([]float64, n), c.remaining > 0
}

func TestOscilloscopeStopsWithSource(t *testing.T) {
	logger := newTestLogger(t)
	scope := NewOscilloscope(logger, NewRenderer(logger, 80, 32), 200)

	var mu sync.Mutex
	frames := 0
	sink := func(frame []byte) {
		mu.Lock()
		frames++
		mu.Unlock()
	}

	scope.Start(context.Background(), &countingTap{remaining: 3}, sink)

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := frames
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("oscilloscope never drained the source")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The loop exits on its own after the final frame; Stop must not hang.
	scope.Stop()
	mu.Lock()
	assert.Equal(t, 3, frames)
	mu.Unlock()
}

func TestOscilloscopeStopCancelsLoop(t *testing.T) {
	logger := newTestLogger(t)
	scope := NewOscilloscope(logger, NewRenderer(logger, 80, 32), 24)

	scope.Start(context.Background(), &countingTap{remaining: 1 << 30}, func([]byte) {})
	time.Sleep(50 * time.Millisecond)
	scope.Stop()

	// A second Stop on an idle scope is a no-op.
	scope.Stop()
}
