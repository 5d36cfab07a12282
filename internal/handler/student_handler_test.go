package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/models"
)

type studentServiceMock struct {
	lastFilter models.StudentFilter
	lastActor  string
	lastLevel  models.GradeLevel
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Student{{ID: "1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (m *studentServiceMock) UpdateGradeLevel(ctx context.Context, id string, req dto.UpdateGradeLevelRequest, actorID string) (*models.Student, error) {
	m.lastActor = actorID
	m.lastLevel = req.GradeLevel
	return &models.Student{ID: id, GradeLevel: req.GradeLevel}, nil
}

func TestStudentHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &studentServiceMock{}
	handler := NewStudentHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/students?gradeLevel=5th%20Primary&active=true&page=2&limit=10&search=%20sara%20", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GradeLevel5thPrimary, mock.lastFilter.GradeLevel)
	require.NotNil(t, mock.lastFilter.Active)
	assert.True(t, *mock.lastFilter.Active)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 10, mock.lastFilter.PageSize)
	assert.Equal(t, "sara", mock.lastFilter.Search)
}

func TestStudentHandlerUpdateGradeLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &studentServiceMock{}
	handler := NewStudentHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.UpdateGradeLevelRequest{GradeLevel: models.GradeLevel4thPrimary})
	c.Request, _ = http.NewRequest(http.MethodPatch, "/students/1/grade-level", strings.NewReader(string(body)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.UpdateGradeLevel(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", mock.lastActor)
	assert.Equal(t, models.GradeLevel4thPrimary, mock.lastLevel)
}

func TestStudentHandlerUpdateGradeLevelInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&studentServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/students/1/grade-level", strings.NewReader("invalid"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateGradeLevel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
