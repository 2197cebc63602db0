// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package trainer_routers

import (
	"github.com/gin-gonic/gin"
	healthCheckApi "github.com/rapidaai/mimic/api/health-check-api"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/connectors"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, sqlite connectors.SqliteConnector) {
	logger.Info("Internal HealthCheckRoutes and Connectors added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger, sqlite)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}
