package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/dto"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type settingsService interface {
	PrintHeader(ctx context.Context) (*dto.PrintHeader, error)
	UpdatePrintHeader(ctx context.Context, req dto.UpdatePrintHeaderRequest, actorID string) (*dto.PrintHeader, error)
}

// SettingsHandler exposes the print header settings.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetPrintHeader godoc
// @Summary Get print header
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/print-header [get]
func (h *SettingsHandler) GetPrintHeader(c *gin.Context) {
	header, err := h.service.PrintHeader(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, header, nil)
}

// UpdatePrintHeader godoc
// @Summary Update print header
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdatePrintHeaderRequest true "Print header"
// @Success 200 {object} response.Envelope
// @Router /settings/print-header [put]
func (h *SettingsHandler) UpdatePrintHeader(c *gin.Context) {
	var req dto.UpdatePrintHeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid print header payload"))
		return
	}
	header, err := h.service.UpdatePrintHeader(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, header, nil)
}
