// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package catalog_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	internal_catalog "github.com/rapidaai/mimic/internal/trainer/catalog"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
)

type catalogApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	store  internal_catalog.Store
}

// CatalogApi serves the practice catalog: people and their coach clips.
type CatalogApi interface {
	GetPersons(c *gin.Context)
	GetPerson(c *gin.Context)
	CreatePerson(c *gin.Context)
	CreateSample(c *gin.Context)
	DeletePerson(c *gin.Context)
}

func NewCatalogApi(cfg *config.AppConfig, logger commons.Logger, store internal_catalog.Store) CatalogApi {
	return &catalogApi{cfg: cfg, logger: logger, store: store}
}

// @Router /v1/catalog/persons [get]
// @Summary List all people available for practice
// @Produce json
func (api *catalogApi) GetPersons(c *gin.Context) {
	persons, err := api.store.Persons(c.Request.Context())
	if err != nil {
		api.logger.Errorf("catalog: list persons: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list persons"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"persons": persons})
}

// @Router /v1/catalog/persons/:personId [get]
// @Summary Get one person with their samples
// @Produce json
func (api *catalogApi) GetPerson(c *gin.Context) {
	person, err := api.store.Person(c.Request.Context(), c.Param("personId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, person)
}

type createPersonRequest struct {
	Name      string `json:"name" binding:"required"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// @Router /v1/catalog/persons [post]
// @Summary Add a person to the catalog
// @Accept json
// @Produce json
func (api *catalogApi) CreatePerson(c *gin.Context) {
	var req createPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := api.store.SavePerson(c.Request.Context(), &internal_catalog.Person{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		api.logger.Errorf("catalog: save person: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to save person"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type createSampleRequest struct {
	Title         string  `json:"title"`
	AudioURL      string  `json:"audioUrl" binding:"required,url"`
	TranscriptURL string  `json:"transcriptUrl" binding:"omitempty,url"`
	Duration      float64 `json:"duration"`
}

// @Router /v1/catalog/persons/:personId/samples [post]
// @Summary Add a coach clip under a person
// @Accept json
// @Produce json
func (api *catalogApi) CreateSample(c *gin.Context) {
	var req createSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := api.store.SaveSample(c.Request.Context(), &internal_catalog.Sample{
		PersonID:      c.Param("personId"),
		Title:         req.Title,
		AudioURL:      req.AudioURL,
		TranscriptURL: req.TranscriptURL,
		Duration:      req.Duration,
	})
	if err != nil {
		api.logger.Errorf("catalog: save sample: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// @Router /v1/catalog/persons/:personId [delete]
// @Summary Remove a person and their samples
func (api *catalogApi) DeletePerson(c *gin.Context) {
	if err := api.store.DeletePerson(c.Request.Context(), c.Param("personId")); err != nil {
		api.logger.Errorf("catalog: delete person: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to delete person"})
		return
	}
	c.Status(http.StatusNoContent)
}
