// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/connectors"
)

type healthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	sqlite connectors.SqliteConnector
}

// HealthCheckApi exposes liveness and readiness probes.
type HealthCheckApi interface {
	Healthz(c *gin.Context)
	Readiness(c *gin.Context)
}

func New(cfg *config.AppConfig, logger commons.Logger, sqlite connectors.SqliteConnector) HealthCheckApi {
	return &healthCheckApi{cfg: cfg, logger: logger, sqlite: sqlite}
}

// Healthz reports process liveness.
func (api *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    api.cfg.Name,
		"version": api.cfg.Version,
	})
}

// Readiness additionally verifies the catalog database answers.
func (api *healthCheckApi) Readiness(c *gin.Context) {
	var one int
	err := api.sqlite.DB(c.Request.Context()).Raw("SELECT 1").Scan(&one).Error
	if err != nil {
		api.logger.Errorf("readiness: catalog db: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
