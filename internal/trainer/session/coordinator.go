// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"context"
	"fmt"
	"sync"
	"time"

	internal_playback "github.com/rapidaai/mimic/internal/trainer/playback"
	internal_recorder "github.com/rapidaai/mimic/internal/trainer/recorder"
	internal_selection "github.com/rapidaai/mimic/internal/trainer/selection"
	internal_transcript "github.com/rapidaai/mimic/internal/trainer/transcript"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

// Coordinator enforces the session invariant: at most one lane is audible
// at any instant. Every lane start force-stops whatever held the floor —
// last write wins, the previous occupant is stopped BEFORE the new one
// starts, so there is no overlap window.
//
// Lanes:
//   - LaneTarget: the coach clip, full length.
//   - LaneSelection: the coach clip restricted to the committed word range,
//     played through its own engine and auto-stopped at the range boundary.
//   - LaneRecording: the user's last take.
//
// Each lane owns a dedicated playback engine with its own decoded buffer,
// playhead, rate and volume; selection playback never disturbs the target
// lane's transport state.
//
// Microphone capture is not a lane but holds the floor the same way: it
// force-stops all lanes when it starts, and no lane may start while it is
// live.
type Coordinator struct {
	logger commons.Logger

	target    *internal_playback.Engine
	preview   *internal_playback.Engine
	recording *internal_playback.Engine
	recorder  *internal_recorder.Engine
	selection *internal_selection.Model
	fetcher   *internal_transcript.Fetcher

	// transMu serializes lane transitions end to end: stop-previous,
	// mark-active and the new engine's Play happen under one critical
	// section, so concurrent transport commands cannot interleave into
	// two audible lanes.
	transMu sync.Mutex

	mu           sync.Mutex
	active       internal_type.Lane
	artifactID   string
	tickInterval time.Duration
	// boundaryCancel stops the selection-boundary watcher.
	boundaryCancel context.CancelFunc

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTickInterval sets the cadence of selection boundary checks. It is
// also handed down to the playback engines.
func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithClock injects a deterministic clock into the coordinator and the
// playback engines plus the recorder.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// NewCoordinator wires the engines together.
func NewCoordinator(logger commons.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       logger,
		selection:    internal_selection.NewModel(),
		fetcher:      internal_transcript.NewFetcher(logger),
		active:       internal_type.LaneNone,
		tickInterval: internal_playback.DefaultTickInterval,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.target = internal_playback.NewEngine(logger,
		internal_playback.WithTickInterval(c.tickInterval),
		internal_playback.WithClock(c.clock))
	c.preview = internal_playback.NewEngine(logger,
		internal_playback.WithTickInterval(c.tickInterval),
		internal_playback.WithClock(c.clock))
	c.recording = internal_playback.NewEngine(logger,
		internal_playback.WithTickInterval(c.tickInterval),
		internal_playback.WithClock(c.clock))
	c.recorder = internal_recorder.NewEngine(logger,
		internal_recorder.WithClock(c.clock))
	return c
}

// Target exposes the coach-clip engine for read-only queries (waveform,
// position). Lane transitions go through the coordinator.
func (c *Coordinator) Target() *internal_playback.Engine { return c.target }

// Preview exposes the selection-lane engine for read-only queries.
func (c *Coordinator) Preview() *internal_playback.Engine { return c.preview }

// Recording exposes the take engine for read-only queries.
func (c *Coordinator) Recording() *internal_playback.Engine { return c.recording }

// Recorder exposes the capture engine, mainly as an oscilloscope tap.
func (c *Coordinator) Recorder() *internal_recorder.Engine { return c.recorder }

// Selection exposes the selection model.
func (c *Coordinator) Selection() *internal_selection.Model { return c.selection }

// SetSource swaps the session to a new coach clip: every lane is torn
// down, the previous take is revoked, the transcript is refetched, and the
// clip is loaded. The target and selection lanes each decode their own
// copy of the clip. A failed load leaves the session empty, not on the old
// source.
func (c *Coordinator) SetSource(ctx context.Context, audioURL, transcriptURL string) error {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	c.stopAllLanes()

	c.mu.Lock()
	c.artifactID = ""
	c.mu.Unlock()
	c.recorder.Revoke()
	c.recording.Close()

	// Transcript degrades to empty on fetch failure; audio does not.
	c.selection.SetTranscript(c.fetcher.Fetch(ctx, transcriptURL))

	if err := c.target.Load(ctx, audioURL); err != nil {
		c.preview.Close()
		return err
	}
	if err := c.preview.Load(ctx, audioURL); err != nil {
		return err
	}
	c.logger.Infof("session: source set to %s", audioURL)
	return nil
}

// PlayTarget gives the floor to the full coach clip, from the given
// position (negative resumes).
func (c *Coordinator) PlayTarget(from float64) error {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	if err := c.acquireLocked(internal_type.LaneTarget); err != nil {
		return err
	}
	c.target.Play(from)
	return nil
}

// PlaySelection gives the floor to the committed word range, played on the
// selection lane's own engine. The lane is auto-stopped when its playhead
// reaches the range end; the boundary check runs at tick cadence, so the
// stop lands within one tick (plus epsilon) of the boundary.
func (c *Coordinator) PlaySelection() error {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	sel := c.selection.Active()
	if sel == nil {
		return fmt.Errorf("no committed selection")
	}
	if err := c.acquireLocked(internal_type.LaneSelection); err != nil {
		return err
	}

	c.preview.Play(sel.StartTime)

	c.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	c.boundaryCancel = cancel
	c.mu.Unlock()

	go c.watchBoundary(ctx, sel.EndTime)
	return nil
}

// PlayRecording gives the floor to the user's last take. Without a take it
// is an error.
func (c *Coordinator) PlayRecording() error {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	artifact := c.recorder.Artifact()
	if artifact == nil {
		return fmt.Errorf("no recorded take")
	}
	if err := c.acquireLocked(internal_type.LaneRecording); err != nil {
		return err
	}

	c.mu.Lock()
	reload := c.artifactID != artifact.ID
	if reload {
		c.artifactID = artifact.ID
	}
	c.mu.Unlock()

	if reload {
		if err := c.recording.LoadBytes(artifact.Data); err != nil {
			c.release(internal_type.LaneRecording)
			return err
		}
	}
	c.recording.Play(0)
	return nil
}

// ClearSelection drops the committed selection. If the selection lane was
// playing, it is stopped and its playhead rewinds to zero so it no longer
// points into a range that no longer exists.
func (c *Coordinator) ClearSelection() {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	wasSelection := c.ActiveLane() == internal_type.LaneSelection
	c.selection.Clear()
	if wasSelection {
		c.stopAllLanes()
		c.preview.Seek(0)
	}
}

// StopLane pauses whichever lane is audible. Idempotent.
func (c *Coordinator) StopLane() {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	c.stopAllLanes()
}

// StartRecording force-stops every lane, then opens the capture track. The
// previous take is revoked by the recorder on a successful start.
func (c *Coordinator) StartRecording(ctx context.Context, source internal_recorder.CaptureSource) error {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	c.stopAllLanes()
	if err := c.recorder.Start(ctx, source); err != nil {
		return err
	}
	c.mu.Lock()
	c.artifactID = ""
	c.mu.Unlock()
	return nil
}

// StopRecording releases the mic track and returns the assembled take.
func (c *Coordinator) StopRecording(ctx context.Context) (*internal_type.RecordingArtifact, error) {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	return c.recorder.Stop(ctx)
}

// ActiveLane reports which lane currently holds the floor.
func (c *Coordinator) ActiveLane() internal_type.Lane {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A lane that ended on its own (clip ran out) gives up the floor.
	switch c.active {
	case internal_type.LaneTarget:
		if !c.target.IsPlaying() {
			c.active = internal_type.LaneNone
		}
	case internal_type.LaneSelection:
		if !c.preview.IsPlaying() {
			c.active = internal_type.LaneNone
		}
	case internal_type.LaneRecording:
		if !c.recording.IsPlaying() {
			c.active = internal_type.LaneNone
		}
	}
	return c.active
}

// Snapshot reports the externally visible state of the playback engines
// and the capture flag.
func (c *Coordinator) Snapshot() SessionState {
	return SessionState{
		ActiveLane: c.ActiveLane(),
		Target:     c.target.Snapshot(),
		Preview:    c.preview.Snapshot(),
		Recording:  c.recording.Snapshot(),
		Capturing:  c.recorder.Active(),
		Selection:  c.selection.Active(),
	}
}

// SessionState is the wire-facing session snapshot.
type SessionState struct {
	ActiveLane internal_type.Lane            `json:"activeLane"`
	Target     internal_type.PlaybackState   `json:"target"`
	Preview    internal_type.PlaybackState   `json:"preview"`
	Recording  internal_type.PlaybackState   `json:"recording"`
	Capturing  bool                          `json:"capturing"`
	Selection  *internal_type.SelectionRange `json:"selection,omitempty"`
}

// Close tears down all lanes and engines.
func (c *Coordinator) Close() {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	c.stopAllLanes()
	if c.recorder.Active() {
		_, _ = c.recorder.Stop(context.Background())
	}
	c.target.Close()
	c.preview.Close()
	c.recording.Close()
}

// ============================================================================
// Floor control
// ============================================================================

// acquireLocked stops the current occupant and marks lane as active. It
// fails while the mic is live: capture is never silently interrupted by
// playback. Callers hold transMu so that the subsequent engine start is
// part of the same transition.
func (c *Coordinator) acquireLocked(lane internal_type.Lane) error {
	if c.recorder.Active() {
		return fmt.Errorf("capture in progress")
	}
	c.stopAllLanes()
	c.mu.Lock()
	c.active = lane
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) release(lane internal_type.Lane) {
	c.mu.Lock()
	if c.active == lane {
		c.active = internal_type.LaneNone
	}
	c.mu.Unlock()
}

// stopAllLanes pauses every playback engine and cancels the boundary
// watcher. Pausing an engine that is not playing is a no-op, so stopping
// is safe to call unconditionally.
func (c *Coordinator) stopAllLanes() {
	c.mu.Lock()
	if c.boundaryCancel != nil {
		c.boundaryCancel()
		c.boundaryCancel = nil
	}
	c.active = internal_type.LaneNone
	c.mu.Unlock()

	c.target.Pause()
	c.preview.Pause()
	c.recording.Pause()
}

// watchBoundary pauses the selection lane once its playhead reaches end.
// Each check runs under transMu and re-checks its context, so a watcher
// that lost a race against a lane transition never touches the engine the
// transition just started. The epsilon of one tick at 1x absorbs the
// projection landing just short of the boundary on the final check.
func (c *Coordinator) watchBoundary(ctx context.Context, end float64) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.checkBoundary(ctx, end) {
				return
			}
		}
	}
}

// checkBoundary performs one boundary check; it reports true once the
// watcher is finished.
func (c *Coordinator) checkBoundary(ctx context.Context, end float64) bool {
	c.transMu.Lock()
	defer c.transMu.Unlock()
	if ctx.Err() != nil {
		return true
	}
	if !c.preview.IsPlaying() {
		c.release(internal_type.LaneSelection)
		return true
	}
	epsilon := c.tickInterval.Seconds()
	if c.preview.CurrentTime() >= end-epsilon {
		c.preview.Pause()
		c.preview.Seek(end)
		c.release(internal_type.LaneSelection)
		return true
	}
	return false
}
