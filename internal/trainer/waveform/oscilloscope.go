// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_waveform

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/mimic/pkg/commons"
)

// ScopeWindowSize is the number of samples drawn per oscilloscope frame.
const ScopeWindowSize = 2048

// Tap supplies live samples to the oscilloscope. ScopeWindow returns the
// most recent n samples and whether the source is still active; once it
// reports inactive the loop draws one final frame and exits.
type Tap interface {
	ScopeWindow(n int) ([]float64, bool)
}

// Sink receives rendered PNG frames. Calls arrive from the scope goroutine;
// implementations must not block, or frames back up against the frame rate
// cap instead of being dropped at the source.
type Sink func(frame []byte)

// Oscilloscope runs the live trace loop: at most fps frames per second,
// each frame a full clear-and-redraw of the tap's current window. Frames
// that would exceed the cap are never queued; the ticker simply coalesces.
type Oscilloscope struct {
	logger   commons.Logger
	renderer *Renderer
	fps      int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOscilloscope creates a scope that renders with the given renderer at a
// capped frame rate.
func NewOscilloscope(logger commons.Logger, renderer *Renderer, fps int) *Oscilloscope {
	if fps <= 0 {
		fps = 24
	}
	return &Oscilloscope{logger: logger, renderer: renderer, fps: fps}
}

// Start launches the trace loop. A scope already running is stopped first;
// there is at most one loop per Oscilloscope.
func (o *Oscilloscope) Start(ctx context.Context, tap Tap, sink Sink) {
	o.Stop()

	o.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	go o.run(loopCtx, tap, sink, done)
}

// Stop cancels the trace loop and waits for it to exit.
func (o *Oscilloscope) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.cancel = nil
	o.done = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (o *Oscilloscope) run(ctx context.Context, tap Tap, sink Sink, done chan struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(o.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			window, active := tap.ScopeWindow(ScopeWindowSize)
			frame, err := o.renderer.RenderScopeFrame(window)
			if err != nil {
				o.logger.Warnf("oscilloscope: frame render failed: %v", err)
				continue
			}
			sink(frame)
			if !active {
				// Final frame drawn; the trace freezes where the source stopped.
				return
			}
		}
	}
}
