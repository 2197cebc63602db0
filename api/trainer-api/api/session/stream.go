// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session_api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	internal_recorder "github.com/rapidaai/mimic/internal/trainer/recorder"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	internal_waveform "github.com/rapidaai/mimic/internal/trainer/waveform"
)

var sessionUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// @Router /v1/session/:sessionId/waveform [get]
// @Summary Render the waveform envelope as PNG
// @Description lane=target (default) or lane=recording. The committed
// selection and current playhead are drawn as overlays on the target lane.
// @Produce image/png
func (api *sessionApi) GetWaveform(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}

	engine := coordinator.Target()
	playhead := coordinator.Target().CurrentTime()
	if coordinator.ActiveLane() == internal_type.LaneSelection {
		playhead = coordinator.Preview().CurrentTime()
	}
	overlay := internal_waveform.Overlay{
		Selection: coordinator.Selection().Active(),
		Playhead:  playhead,
	}
	if c.Query("lane") == "recording" {
		engine = coordinator.Recording()
		overlay = internal_waveform.Overlay{Playhead: engine.CurrentTime()}
	}

	frame, err := api.renderer.RenderEnvelope(engine.Buffer(), overlay)
	if err != nil {
		api.logger.Errorf("session: waveform render: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", frame)
}

// wsWriter serializes concurrent writers onto one websocket connection.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsWriter) WriteBinary(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

// @Router /v1/session/:sessionId/stream [get]
// @Summary Live session stream
// @Description Pushes the session snapshot as JSON at tick cadence. While
// the mic is capturing, oscilloscope frames are interleaved as binary PNG
// messages at the configured frame rate.
// @Success 101 "Switching Protocols"
func (api *sessionApi) StreamSession(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}

	conn, err := sessionUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Errorf("session: stream upgrade failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to upgrade to WebSocket"})
		return
	}
	defer conn.Close()

	writer := &wsWriter{conn: conn}
	scope := internal_waveform.NewOscilloscope(api.logger,
		internal_waveform.NewRenderer(api.logger, api.cfg.WaveformWidthPx, api.cfg.WaveformHeightPx),
		api.cfg.OscilloscopeFPS)
	defer scope.Stop()

	// The read side only serves to detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := time.Duration(api.cfg.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scopeRunning := false
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			snapshot := coordinator.Snapshot()
			if err := writer.WriteJSON(snapshot); err != nil {
				return
			}
			if snapshot.Capturing && !scopeRunning {
				scopeRunning = true
				scope.Start(c.Request.Context(), coordinator.Recorder(), func(frame []byte) {
					_ = writer.WriteBinary(frame)
				})
			} else if !snapshot.Capturing && scopeRunning {
				// The scope loop exits on its own when the tap goes
				// inactive; this just resets the start latch.
				scopeRunning = false
			}
		}
	}
}

// @Router /v1/session/:sessionId/capture [get]
// @Summary Microphone capture socket
// @Description Binary frames in the codec negotiated via the codecs query
// parameter (comma separated, e.g. codecs=opus,linear16). Closing the
// socket ends the track; the take is then assembled and retrievable via
// the artifact endpoint.
// @Success 101 "Switching Protocols"
func (api *sessionApi) CaptureAudio(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}

	offered := strings.Split(c.DefaultQuery("codecs", "linear16"), ",")
	if _, err := internal_recorder.NegotiateCodec(offered); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := sessionUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Errorf("session: capture upgrade failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to upgrade to WebSocket"})
		return
	}

	source := internal_recorder.NewWebsocketCaptureSource(api.logger, conn, offered)
	if err := coordinator.StartRecording(c.Request.Context(), source); err != nil {
		api.logger.Warnf("session: capture rejected: %v", err)
		_ = conn.WriteJSON(gin.H{"error": err.Error()})
		_ = source.Close()
		return
	}

	// Block until the track ends — the client closing the socket is the
	// stop signal — then assemble the take.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
waitLoop:
	for coordinator.Recorder().Active() {
		select {
		case <-c.Request.Context().Done():
			break waitLoop
		case <-ticker.C:
		}
	}

	artifact, err := coordinator.StopRecording(context.Background())
	if err != nil {
		api.logger.Warnf("session: take assembly: %v", err)
		return
	}
	api.logger.Infof("session: take %s assembled (%.2fs)", artifact.ID, artifact.Duration)
}
