package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

// GradeLevelHandler exposes the grade level catalog and schema resolver.
type GradeLevelHandler struct{}

// NewGradeLevelHandler constructs GradeLevelHandler.
func NewGradeLevelHandler() *GradeLevelHandler {
	return &GradeLevelHandler{}
}

// List godoc
// @Summary List grade levels with their schemas
// @Tags GradeLevels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grade-levels [get]
func (h *GradeLevelHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, service.GradeLevelCatalog(), nil)
}

// Schema godoc
// @Summary Resolve the grading schema of a grade level
// @Description Unknown levels resolve to the lower-primary schema with fallback=true.
// @Tags GradeLevels
// @Produce json
// @Param level path string true "Grade level"
// @Success 200 {object} response.Envelope
// @Router /grade-levels/{level}/schema [get]
func (h *GradeLevelHandler) Schema(c *gin.Context) {
	response.JSON(c, http.StatusOK, service.SchemaView(models.GradeLevel(c.Param("level"))), nil)
}
