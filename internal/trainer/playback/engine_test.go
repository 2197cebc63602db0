// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("playback-test"), commons.Level("error"))
	require.NoError(t, err)
	return logger
}

// wavServer serves a silent PCM16 clip of the given duration.
func wavServer(t *testing.T, seconds float64) *httptest.Server {
	t.Helper()
	cfg := internal_audio.MIMIC_INTERNAL_AUDIO_CONFIG
	pcm := make([]byte, int(seconds*float64(cfg.BytesPerSecond())))
	wav := internal_audio.EncodeWAV(pcm, cfg)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
}

// loadedEngine returns a Ready engine with a clip of the given duration and
// a tick loop effectively disabled so tests drive step() by hand.
func loadedEngine(t *testing.T, seconds float64, clock *fakeClock) *Engine {
	t.Helper()
	srv := wavServer(t, seconds)
	t.Cleanup(srv.Close)

	engine := NewEngine(newTestLogger(t), WithClock(clock.Now), WithTickInterval(time.Hour))
	require.NoError(t, engine.Load(context.Background(), srv.URL))
	require.Equal(t, StateReady, engine.State())
	t.Cleanup(engine.Close)
	return engine
}

func TestLoadFailureLeavesIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewEngine(newTestLogger(t))
	err := engine.Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, internal_type.IsLoadError(err))
	assert.Equal(t, StateIdle, engine.State())
	assert.Nil(t, engine.Buffer())
}

func TestLoadRejectsNonWAVBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!doctype html><html>not audio</html>"))
	}))
	defer srv.Close()

	engine := NewEngine(newTestLogger(t))
	err := engine.Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, internal_type.IsDecodeError(err))
	assert.Equal(t, StateIdle, engine.State())
}

func TestFailedLoadDoesNotClobberSupersedingLoad(t *testing.T) {
	// The slow URL blocks until released, then fails; a second Load
	// supersedes it in the meantime and must keep its buffer.
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer slow.Close()
	good := wavServer(t, 2.0)
	defer good.Close()

	engine := NewEngine(newTestLogger(t))
	defer engine.Close()

	firstDone := make(chan error, 1)
	go func() { firstDone <- engine.Load(context.Background(), slow.URL) }()

	// Wait for the first load to own the state before superseding it.
	deadline := time.After(2 * time.Second)
	for engine.State() != StateLoading {
		select {
		case <-deadline:
			t.Fatal("first load never started")
		case <-time.After(time.Millisecond):
		}
	}

	require.NoError(t, engine.Load(context.Background(), good.URL))
	require.Equal(t, StateReady, engine.State())

	close(release)
	require.Error(t, <-firstDone)

	// The stale failure must not reset the superseding load's result.
	assert.Equal(t, StateReady, engine.State())
	require.NotNil(t, engine.Buffer())
	assert.InDelta(t, 2.0, engine.Duration(), 0.01)
}

func TestPlayIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 4.0, clock)

	engine.Play(0)
	require.Equal(t, StatePlaying, engine.State())
	firstGen := engine.nodeGens

	// A second Play while already playing must not construct a second node.
	engine.Play(0)
	engine.Play(1.5)
	assert.Equal(t, firstGen, engine.nodeGens)
	assert.Equal(t, StatePlaying, engine.State())
}

func TestSeekClampsToBufferBounds(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 4.0, clock)

	engine.Seek(-5)
	assert.Equal(t, 0.0, engine.CurrentTime())

	engine.Seek(999)
	assert.Equal(t, 4.0, engine.CurrentTime())
}

func TestSeekWhilePlayingRestartsAtTarget(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 4.0, clock)

	engine.Play(0)
	genBefore := engine.nodeGens
	clock.Advance(time.Second)
	engine.Seek(3.0)

	assert.Equal(t, StatePlaying, engine.State())
	assert.InDelta(t, 3.0, engine.CurrentTime(), 1e-9)
	// A playing seek swaps in a fresh node rather than rewinding the old one.
	assert.Equal(t, genBefore+1, engine.nodeGens)
}

func TestPositionIsWallClockProjection(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 10.0, clock)

	engine.Play(0)
	// Uneven tick arrival must not accumulate: position depends only on
	// elapsed wall time since the anchor.
	clock.Advance(30 * time.Millisecond)
	engine.step()
	clock.Advance(170 * time.Millisecond)
	engine.step()
	clock.Advance(1800 * time.Millisecond)
	engine.step()

	assert.InDelta(t, 2.0, engine.CurrentTime(), 1e-9)
}

func TestRateChangeReanchors(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 10.0, clock)

	engine.Play(0)
	clock.Advance(time.Second)
	engine.SetPlaybackRate(1.5)
	clock.Advance(time.Second)

	// 1s at 1.0x then 1s at 1.5x.
	assert.InDelta(t, 2.5, engine.CurrentTime(), 1e-9)
}

func TestRateAndVolumeClamp(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 4.0, clock)

	engine.SetPlaybackRate(0.1)
	assert.Equal(t, MinPlaybackRate, engine.Snapshot().PlaybackRate)
	engine.SetPlaybackRate(9.0)
	assert.Equal(t, MaxPlaybackRate, engine.Snapshot().PlaybackRate)

	engine.SetVolume(-1)
	assert.Equal(t, 0.0, engine.Snapshot().Volume)
	engine.SetVolume(2)
	assert.Equal(t, 1.0, engine.Snapshot().Volume)
}

func TestPauseFreezesAndResumeContinues(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 10.0, clock)

	engine.Play(0)
	clock.Advance(1500 * time.Millisecond)
	engine.Pause()

	assert.Equal(t, StateReady, engine.State())
	assert.InDelta(t, 1.5, engine.CurrentTime(), 1e-9)

	// Time passing while paused must not move the playhead.
	clock.Advance(5 * time.Second)
	assert.InDelta(t, 1.5, engine.CurrentTime(), 1e-9)

	engine.Play(-1)
	clock.Advance(time.Second)
	assert.InDelta(t, 2.5, engine.CurrentTime(), 1e-9)
}

func TestEndedFiresExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 1.0, clock)

	engine.Play(0)
	clock.Advance(1500 * time.Millisecond)
	engine.step()
	// Extra steps after the end must not re-fire.
	engine.step()
	engine.step()

	assert.Equal(t, StateReady, engine.State())
	assert.Equal(t, 1.0, engine.CurrentTime())

	ended := 0
	for {
		select {
		case ev := <-engine.Events():
			if ev.Type == EventEnded {
				ended++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, ended)
}

func TestReplayAfterEndRestartsFromTop(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 1.0, clock)

	engine.Play(0)
	clock.Advance(2 * time.Second)
	engine.step()
	require.Equal(t, StateReady, engine.State())

	engine.Play(-1)
	assert.Equal(t, StatePlaying, engine.State())
	assert.InDelta(t, 0.0, engine.CurrentTime(), 1e-9)
}

func TestLoadSupersedesPlayback(t *testing.T) {
	clock := newFakeClock()
	engine := loadedEngine(t, 4.0, clock)

	engine.Play(2.0)
	require.Equal(t, StatePlaying, engine.State())

	srv := wavServer(t, 2.0)
	defer srv.Close()
	require.NoError(t, engine.Load(context.Background(), srv.URL))

	assert.Equal(t, StateReady, engine.State())
	assert.Equal(t, 0.0, engine.CurrentTime())
	assert.Equal(t, 2.0, engine.Duration())
}
