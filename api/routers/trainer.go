// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package trainer_routers

import (
	"github.com/gin-gonic/gin"
	catalogApi "github.com/rapidaai/mimic/api/trainer-api/api/catalog"
	sessionApi "github.com/rapidaai/mimic/api/trainer-api/api/session"
	internal_catalog "github.com/rapidaai/mimic/internal/trainer/catalog"
	internal_session "github.com/rapidaai/mimic/internal/trainer/session"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
)

// CatalogApiRoutes mounts the practice catalog under /v1/catalog.
func CatalogApiRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, store internal_catalog.Store) {
	logger.Info("CatalogApiRoutes added to engine.")
	api := catalogApi.NewCatalogApi(cfg, logger, store)
	apiv1 := engine.Group("/v1/catalog")
	{
		apiv1.GET("/persons", api.GetPersons)
		apiv1.POST("/persons", api.CreatePerson)
		apiv1.GET("/persons/:personId", api.GetPerson)
		apiv1.DELETE("/persons/:personId", api.DeletePerson)
		apiv1.POST("/persons/:personId/samples", api.CreateSample)
	}
}

// SessionApiRoutes mounts the practice session surface under /v1/session.
// Entitlement is the caller's concern: any gate (access code, subscription)
// is passed in as middleware; the session surface performs no authorization
// of its own.
func SessionApiRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	manager *internal_session.Manager,
	store internal_catalog.Store,
	entitlement ...gin.HandlerFunc,
) {
	logger.Info("SessionApiRoutes added to engine.")
	api := sessionApi.NewSessionApi(cfg, logger, manager, store)
	apiv1 := engine.Group("/v1/session", entitlement...)
	{
		apiv1.POST("/", api.CreateSession)
		apiv1.DELETE("/:sessionId", api.DeleteSession)
		apiv1.GET("/:sessionId/state", api.GetState)
		apiv1.POST("/:sessionId/source", api.SetSource)
		apiv1.GET("/:sessionId/transcript", api.GetTranscript)

		apiv1.POST("/:sessionId/target/play", api.PlayTarget)
		apiv1.POST("/:sessionId/pause", api.Pause)
		apiv1.POST("/:sessionId/target/seek", api.Seek)
		apiv1.POST("/:sessionId/target/rate", api.SetRate)
		apiv1.POST("/:sessionId/target/volume", api.SetVolume)

		apiv1.POST("/:sessionId/selection/begin", api.BeginSelection)
		apiv1.POST("/:sessionId/selection/extend", api.ExtendSelection)
		apiv1.POST("/:sessionId/selection/commit", api.CommitSelection)
		apiv1.DELETE("/:sessionId/selection", api.ClearSelection)
		apiv1.POST("/:sessionId/selection/play", api.PlaySelection)

		apiv1.POST("/:sessionId/recording/play", api.PlayRecording)
		apiv1.GET("/:sessionId/recording/artifact", api.GetArtifact)

		apiv1.GET("/:sessionId/waveform", api.GetWaveform)
		apiv1.GET("/:sessionId/stream", api.StreamSession)
		apiv1.GET("/:sessionId/capture", api.CaptureAudio)
	}
}
