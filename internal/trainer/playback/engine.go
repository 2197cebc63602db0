// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/utils"
)

// State is the engine lifecycle: Idle -> Loading -> Ready -> Playing ->
// Ready -> ... -> Idle (teardown).
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

const (
	MinPlaybackRate = 0.5
	MaxPlaybackRate = 1.5

	// DefaultTickInterval drives position projection. The selection
	// boundary epsilon in the coordinator is derived from the same value.
	DefaultTickInterval = 50 * time.Millisecond

	eventChannelSize = 128
)

// EventType distinguishes events on the engine's event channel.
type EventType int

const (
	// EventPosition carries the projected playhead once per tick while
	// playing.
	EventPosition EventType = iota
	// EventEnded fires exactly once per play cycle when the playhead
	// reaches the buffer duration.
	EventEnded
)

// Event is a playback notification. Position is in seconds.
type Event struct {
	Type     EventType
	Position float64
}

// sourceNode mirrors the one-shot nature of platform audio source nodes: a
// node is created per Play, consumed until Pause/Seek/end, and never
// restarted. Generation counting makes "at most one live node" checkable.
type sourceNode struct {
	gen int64
}

// Engine owns one decoded audio buffer and at most one active playback node.
// While playing, the playhead is never accumulated tick-by-tick (which
// compounds timer jitter into audible drift over long clips); it is
// recomputed each tick from a single wall-clock anchor taken at Play time:
//
//	position = anchorPos + rate * (now - anchorWall)
type Engine struct {
	logger commons.Logger
	client *resty.Client

	mu     sync.Mutex
	state  State
	buffer *internal_audio.DecodedAudio
	url    string

	currentTime float64
	rate        float64
	volume      float64

	// Wall-clock anchor, valid only while playing.
	anchorPos  float64
	anchorWall time.Time

	node       *sourceNode
	nodeGens   int64
	endedFired bool

	tickInterval time.Duration
	tickCancel   context.CancelFunc

	events chan Event

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval overrides the position projection cadence.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an idle playback engine.
func NewEngine(logger commons.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:       logger,
		client:       resty.New().SetTimeout(30 * time.Second),
		state:        StateIdle,
		rate:         1.0,
		volume:       1.0,
		tickInterval: DefaultTickInterval,
		events:       make(chan Event, eventChannelSize),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events exposes position and lifecycle notifications. Pushes are
// non-blocking; a slow consumer loses position ticks, never Ended events
// ordering relative to positions already delivered.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Load fetches and decodes the audio at url. While loading, Play calls are
// rejected rather than queued — a queued play could race a decode that
// fails. On any failure the engine is left Idle with no buffer; partial
// audio is never substituted.
func (e *Engine) Load(ctx context.Context, url string) error {
	e.mu.Lock()
	// A source change invalidates everything derived from the old buffer.
	e.stopTickLoopLocked()
	e.node = nil
	e.buffer = nil
	e.currentTime = 0
	e.endedFired = false
	e.state = StateLoading
	e.url = url
	e.mu.Unlock()

	data, err := e.fetch(ctx, url)
	if err != nil {
		e.toIdle(url)
		return err
	}

	decoded, err := internal_audio.DecodeWAV(data)
	if err != nil {
		e.toIdle(url)
		return err
	}

	e.mu.Lock()
	// Another Load may have superseded this one while we were decoding.
	if e.url != url || e.state != StateLoading {
		e.mu.Unlock()
		return nil
	}
	e.buffer = decoded
	e.state = StateReady
	e.mu.Unlock()

	e.logger.Infof("playback: loaded %s (%.2fs @ %dHz)", url, decoded.Duration(), decoded.SampleRate)
	return nil
}

// LoadBytes decodes an in-memory WAV (a recorded take) instead of fetching
// a URL. Same state machine as Load.
func (e *Engine) LoadBytes(data []byte) error {
	e.mu.Lock()
	e.stopTickLoopLocked()
	e.node = nil
	e.buffer = nil
	e.currentTime = 0
	e.endedFired = false
	e.state = StateLoading
	e.url = ""
	e.mu.Unlock()

	decoded, err := internal_audio.DecodeWAV(data)
	if err != nil {
		e.toIdle("")
		return err
	}

	e.mu.Lock()
	if e.url != "" || e.state != StateLoading {
		e.mu.Unlock()
		return nil
	}
	e.buffer = decoded
	e.state = StateReady
	e.mu.Unlock()
	return nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &internal_type.LoadError{URL: url, Err: err}
	}
	if resp.IsError() {
		return nil, &internal_type.LoadError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	return resp.Body(), nil
}

// toIdle resets a failed load, but only if that load still owns the
// state — a superseding Load that switched the engine to its own url (or
// already finished) must not be knocked back to Idle.
func (e *Engine) toIdle(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.url != url || e.state != StateLoading {
		return
	}
	e.state = StateIdle
	e.buffer = nil
}

// Play starts playback from the given position, or from the frozen
// currentTime when from is negative. Playing while already playing is a
// no-op (idempotent: no duplicate node). Playing while Idle/Loading is
// rejected silently.
func (e *Engine) Play(from float64) {
	e.mu.Lock()
	if e.state == StatePlaying || e.buffer == nil || e.state == StateLoading {
		e.mu.Unlock()
		return
	}

	start := e.currentTime
	if from >= 0 {
		start = utils.Clamp(from, 0, e.buffer.Duration())
	}
	// Replaying a finished clip restarts from the top.
	if start >= e.buffer.Duration() {
		start = 0
	}

	// Every play constructs a fresh one-shot node; the previous node (if
	// any) was discarded at Pause/end. This is deliberate, not a leak.
	e.nodeGens++
	e.node = &sourceNode{gen: e.nodeGens}

	e.currentTime = start
	e.anchorPos = start
	e.anchorWall = e.clock()
	e.endedFired = false
	e.state = StatePlaying

	ctx := e.startTickLoopLocked()
	e.mu.Unlock()

	if ctx != nil {
		go e.runTickLoop(ctx)
	}
}

// Pause stops and discards the current node, freezing currentTime at its
// last projected value. No-op unless playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.currentTime = e.projectLocked()
	e.node = nil
	e.state = StateReady
	e.stopTickLoopLocked()
}

// Seek moves the playhead to t, clamped to [0, duration]. If playing, the
// engine pauses and restarts at the target so the audible position jumps
// atomically.
func (e *Engine) Seek(t float64) {
	e.mu.Lock()
	if e.buffer == nil {
		e.mu.Unlock()
		return
	}
	target := utils.Clamp(t, 0, e.buffer.Duration())
	wasPlaying := e.state == StatePlaying
	if wasPlaying {
		e.node = nil
		e.state = StateReady
		e.stopTickLoopLocked()
	}
	e.currentTime = target
	e.mu.Unlock()

	if wasPlaying {
		e.Play(target)
	}
}

// SetPlaybackRate clamps and applies the rate. While playing, the anchor is
// re-snapped so already-elapsed audio keeps its old rate and only the
// remainder is scaled.
func (e *Engine) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rate = utils.Clamp(rate, MinPlaybackRate, MaxPlaybackRate)
	if e.state == StatePlaying {
		e.anchorPos = e.projectLocked()
		e.anchorWall = e.clock()
	}
	e.rate = rate
}

// SetVolume clamps and stores the lane volume.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = utils.Clamp(v, 0, 1)
}

// CurrentTime returns the playhead: the frozen value while paused, the
// wall-clock projection while playing.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePlaying {
		return e.projectLocked()
	}
	return e.currentTime
}

// Duration returns the loaded buffer duration, 0 when nothing is loaded.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffer == nil {
		return 0
	}
	return e.buffer.Duration()
}

// Buffer returns the decoded audio, nil unless Ready/Playing. The engine
// retains exclusive ownership; callers only read.
func (e *Engine) Buffer() *internal_audio.DecodedAudio {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// State returns the engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the externally visible playback state.
func (e *Engine) Snapshot() internal_type.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ct := e.currentTime
	if e.state == StatePlaying {
		ct = e.projectLocked()
	}
	return internal_type.PlaybackState{
		IsPlaying:    e.state == StatePlaying,
		CurrentTime:  ct,
		PlaybackRate: e.rate,
		Volume:       e.volume,
	}
}

// IsPlaying reports whether the engine is in the Playing state.
func (e *Engine) IsPlaying() bool {
	return e.State() == StatePlaying
}

// Close tears the engine down to Idle and cancels the tick loop.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickLoopLocked()
	e.node = nil
	e.buffer = nil
	e.state = StateIdle
}

// ============================================================================
// Position projection
// ============================================================================

// projectLocked computes the drift-free playhead from the play anchor.
// Callers hold e.mu.
func (e *Engine) projectLocked() float64 {
	elapsed := e.clock().Sub(e.anchorWall).Seconds()
	pos := e.anchorPos + elapsed*e.rate
	if e.buffer != nil && pos > e.buffer.Duration() {
		pos = e.buffer.Duration()
	}
	return pos
}

// step advances one projection tick: pushes a position event and, when the
// playhead reaches the buffer duration, transitions to Ready and fires
// Ended exactly once. Returns false once the play cycle is over.
func (e *Engine) step() bool {
	e.mu.Lock()
	if e.state != StatePlaying {
		e.mu.Unlock()
		return false
	}

	pos := e.projectLocked()
	duration := e.buffer.Duration()

	if pos >= duration {
		e.currentTime = duration
		e.node = nil
		e.state = StateReady
		e.stopTickLoopLocked()
		fireEnded := !e.endedFired
		e.endedFired = true
		e.mu.Unlock()

		if fireEnded {
			e.push(Event{Type: EventEnded, Position: duration})
		}
		return false
	}

	e.currentTime = pos
	e.mu.Unlock()

	e.push(Event{Type: EventPosition, Position: pos})
	return true
}

// startTickLoopLocked arms a fresh loop context. Callers hold e.mu and are
// responsible for launching runTickLoop with the returned context.
func (e *Engine) startTickLoopLocked() context.Context {
	e.stopTickLoopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	e.tickCancel = cancel
	return ctx
}

func (e *Engine) stopTickLoopLocked() {
	if e.tickCancel != nil {
		e.tickCancel()
		e.tickCancel = nil
	}
}

func (e *Engine) runTickLoop(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.step() {
				return
			}
		}
	}
}

// push sends an event without blocking; a full channel drops the event.
func (e *Engine) push(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Debugw("playback: event channel full, dropping event", "type", ev.Type)
	}
}
