package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type settingsServiceMock struct {
	header    *dto.PrintHeader
	updateErr error
	actor     string
}

func (m *settingsServiceMock) PrintHeader(ctx context.Context) (*dto.PrintHeader, error) {
	return m.header, nil
}

func (m *settingsServiceMock) UpdatePrintHeader(ctx context.Context, req dto.UpdatePrintHeaderRequest, actorID string) (*dto.PrintHeader, error) {
	m.actor = actorID
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dto.PrintHeader{SchoolName: req.SchoolName, ManagerName: req.ManagerName}, nil
}

func TestSettingsHandlerGetPrintHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSettingsHandler(&settingsServiceMock{header: &dto.PrintHeader{SchoolName: "ثانوية النور"}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/settings/print-header", nil)

	handler.GetPrintHeader(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ثانوية النور")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSettingsHandlerUpdatePrintHeaderValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &settingsServiceMock{updateErr: appErrors.ErrValidation}
	handler := NewSettingsHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/settings/print-header", bytes.NewReader([]byte(`{"school_name":""}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.UpdatePrintHeader(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "admin-1", mock.actor)
}
