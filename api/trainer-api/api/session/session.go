// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	internal_catalog "github.com/rapidaai/mimic/internal/trainer/catalog"
	internal_session "github.com/rapidaai/mimic/internal/trainer/session"
	internal_waveform "github.com/rapidaai/mimic/internal/trainer/waveform"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
)

type sessionApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	manager  *internal_session.Manager
	store    internal_catalog.Store
	renderer *internal_waveform.Renderer
}

// SessionApi serves the practice session lifecycle: source selection,
// lane transport controls, word selection, capture and the live stream.
type SessionApi interface {
	CreateSession(c *gin.Context)
	DeleteSession(c *gin.Context)
	GetState(c *gin.Context)
	SetSource(c *gin.Context)
	GetTranscript(c *gin.Context)

	PlayTarget(c *gin.Context)
	Pause(c *gin.Context)
	Seek(c *gin.Context)
	SetRate(c *gin.Context)
	SetVolume(c *gin.Context)

	BeginSelection(c *gin.Context)
	ExtendSelection(c *gin.Context)
	CommitSelection(c *gin.Context)
	ClearSelection(c *gin.Context)
	PlaySelection(c *gin.Context)

	PlayRecording(c *gin.Context)
	GetArtifact(c *gin.Context)

	GetWaveform(c *gin.Context)
	StreamSession(c *gin.Context)
	CaptureAudio(c *gin.Context)
}

func NewSessionApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	manager *internal_session.Manager,
	store internal_catalog.Store,
) SessionApi {
	return &sessionApi{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		store:    store,
		renderer: internal_waveform.NewRenderer(logger, cfg.WaveformWidthPx, cfg.WaveformHeightPx),
	}
}

// session resolves the path session id, replying 404 on a miss.
func (api *sessionApi) session(c *gin.Context) (*internal_session.Coordinator, bool) {
	coordinator, ok := api.manager.Get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return nil, false
	}
	return coordinator, true
}

// @Router /v1/session/ [post]
// @Summary Create a practice session
// @Produce json
func (api *sessionApi) CreateSession(c *gin.Context) {
	id, _ := api.manager.Create()
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

// @Router /v1/session/:sessionId [delete]
// @Summary Tear down a practice session
func (api *sessionApi) DeleteSession(c *gin.Context) {
	api.manager.Delete(c.Param("sessionId"))
	c.Status(http.StatusNoContent)
}

// @Router /v1/session/:sessionId/state [get]
// @Summary Current lane and transport state
// @Produce json
func (api *sessionApi) GetState(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

type setSourceRequest struct {
	SampleID      string `json:"sampleId"`
	AudioURL      string `json:"audioUrl"`
	TranscriptURL string `json:"transcriptUrl"`
}

// @Router /v1/session/:sessionId/source [post]
// @Summary Point the session at a coach clip
// @Description Accepts either a catalog sampleId or raw audio/transcript URLs.
// @Accept json
// @Produce json
func (api *sessionApi) SetSource(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req setSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	audioURL, transcriptURL := req.AudioURL, req.TranscriptURL
	if req.SampleID != "" {
		sample, err := api.store.Sample(c.Request.Context(), req.SampleID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		audioURL, transcriptURL = sample.AudioURL, sample.TranscriptURL
	}
	if audioURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sampleId or audioUrl required"})
		return
	}

	if err := coordinator.SetSource(c.Request.Context(), audioURL, transcriptURL); err != nil {
		api.logger.Errorf("session: set source: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"duration": coordinator.Target().Duration(),
		"words":    coordinator.Selection().Transcript(),
	})
}

// @Router /v1/session/:sessionId/transcript [get]
// @Summary Word timestamps for the loaded clip
// @Produce json
func (api *sessionApi) GetTranscript(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": coordinator.Selection().Transcript()})
}

type playRequest struct {
	From *float64 `json:"from"`
}

// @Router /v1/session/:sessionId/target/play [post]
// @Summary Play the coach clip
// @Accept json
func (api *sessionApi) PlayTarget(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req playRequest
	_ = c.ShouldBindJSON(&req)
	from := -1.0
	if req.From != nil {
		from = *req.From
	}
	if err := coordinator.PlayTarget(from); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

// @Router /v1/session/:sessionId/pause [post]
// @Summary Pause whichever lane is audible
func (api *sessionApi) Pause(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	coordinator.StopLane()
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

type seekRequest struct {
	To float64 `json:"to"`
}

// @Router /v1/session/:sessionId/target/seek [post]
// @Summary Move the coach playhead
// @Accept json
func (api *sessionApi) Seek(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coordinator.Target().Seek(req.To)
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

// @Router /v1/session/:sessionId/target/rate [post]
// @Summary Set the coach playback rate
// @Accept json
func (api *sessionApi) SetRate(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coordinator.Target().SetPlaybackRate(req.Rate)
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

// @Router /v1/session/:sessionId/target/volume [post]
// @Summary Set the coach lane volume
// @Accept json
func (api *sessionApi) SetVolume(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coordinator.Target().SetVolume(req.Volume)
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

type selectionRequest struct {
	WordIndex int `json:"wordIndex"`
}

// @Router /v1/session/:sessionId/selection/begin [post]
// @Summary Anchor a word selection
// @Accept json
func (api *sessionApi) BeginSelection(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coordinator.Selection().BeginSelection(req.WordIndex)
	c.Status(http.StatusNoContent)
}

// @Router /v1/session/:sessionId/selection/extend [post]
// @Summary Extend the in-progress selection
// @Accept json
func (api *sessionApi) ExtendSelection(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coordinator.Selection().ExtendSelection(req.WordIndex)
	c.Status(http.StatusNoContent)
}

// @Router /v1/session/:sessionId/selection/commit [post]
// @Summary Commit the in-progress selection
// @Produce json
func (api *sessionApi) CommitSelection(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	sel := coordinator.Selection().CommitSelection()
	if sel == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no selection in progress"})
		return
	}
	c.JSON(http.StatusOK, sel)
}

// @Router /v1/session/:sessionId/selection [delete]
// @Summary Clear the selection
func (api *sessionApi) ClearSelection(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	coordinator.ClearSelection()
	c.Status(http.StatusNoContent)
}

// @Router /v1/session/:sessionId/selection/play [post]
// @Summary Play the committed word range
func (api *sessionApi) PlaySelection(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	if err := coordinator.PlaySelection(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

// @Router /v1/session/:sessionId/recording/play [post]
// @Summary Play back the last take
func (api *sessionApi) PlayRecording(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	if err := coordinator.PlayRecording(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, coordinator.Snapshot())
}

// @Router /v1/session/:sessionId/recording/artifact [get]
// @Summary Download the last take as WAV
// @Produce audio/wav
func (api *sessionApi) GetArtifact(c *gin.Context) {
	coordinator, ok := api.session(c)
	if !ok {
		return
	}
	artifact := coordinator.Recorder().Artifact()
	if artifact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recorded take"})
		return
	}
	c.Header("X-Artifact-Id", artifact.ID)
	c.Data(http.StatusOK, artifact.MimeType, artifact.Data)
}
