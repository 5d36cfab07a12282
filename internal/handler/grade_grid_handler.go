package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type gradeGridService interface {
	Load(ctx context.Context, studentID, academicYear string) (*dto.GradeGridView, error)
	Save(ctx context.Context, studentID, academicYear string, req dto.SaveGradeGridRequest) (*dto.GradeGridView, error)
	SetCell(ctx context.Context, studentID, academicYear string, req dto.SetCellRequest) (*dto.GradeGridView, error)
	Reset(ctx context.Context, studentID, academicYear string, req dto.ResetGradeGridRequest) (*dto.GradeGridView, error)
}

type gradePrintService interface {
	Print(ctx context.Context, studentID, academicYear string, req dto.PrintGradesRequest) (*dto.PrintGradesResponse, error)
	Download(ctx context.Context, token string) (*service.PrintArtifact, error)
}

// GradeGridHandler exposes grade entry, reset and print endpoints.
type GradeGridHandler struct {
	grids  gradeGridService
	prints gradePrintService
}

// NewGradeGridHandler constructs GradeGridHandler.
func NewGradeGridHandler(grids gradeGridService, prints gradePrintService) *GradeGridHandler {
	return &GradeGridHandler{grids: grids, prints: prints}
}

// Load godoc
// @Summary Load a student's grade grid
// @Description Returns the stored grid, or an empty grid for the student's current grade level, with its conflict state.
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param year path string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades/{year} [get]
func (h *GradeGridHandler) Load(c *gin.Context) {
	view, err := h.grids.Load(c.Request.Context(), c.Param("id"), c.Param("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Save godoc
// @Summary Overwrite a student's grade grid
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param year path string true "Academic year"
// @Param payload body dto.SaveGradeGridRequest true "Complete grid"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/grades/{year} [put]
func (h *GradeGridHandler) Save(c *gin.Context) {
	var req dto.SaveGradeGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade grid payload"))
		return
	}
	view, err := h.grids.Save(c.Request.Context(), c.Param("id"), c.Param("year"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetCell godoc
// @Summary Set one grade cell and save
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param year path string true "Academic year"
// @Param payload body dto.SetCellRequest true "Cell"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/grades/{year}/cells [patch]
func (h *GradeGridHandler) SetCell(c *gin.Context) {
	var req dto.SetCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cell payload"))
		return
	}
	view, err := h.grids.SetCell(c.Request.Context(), c.Param("id"), c.Param("year"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Reset godoc
// @Summary Reset a grade grid to the student's current grade level
// @Description Destroys every entered value. Requires confirm=true.
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param year path string true "Academic year"
// @Param payload body dto.ResetGradeGridRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /students/{id}/grades/{year}/reset [post]
func (h *GradeGridHandler) Reset(c *gin.Context) {
	var req dto.ResetGradeGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrConfirmationRequired.Code, appErrors.ErrConfirmationRequired.Status, "reset must be confirmed"))
		return
	}
	view, err := h.grids.Reset(c.Request.Context(), c.Param("id"), c.Param("year"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Print godoc
// @Summary Render selected grade columns
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param year path string true "Academic year"
// @Param payload body dto.PrintGradesRequest true "Columns and format"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/grades/{year}/print [post]
func (h *GradeGridHandler) Print(c *gin.Context) {
	var req dto.PrintGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid print payload"))
		return
	}
	result, err := h.prints.Print(c.Request.Context(), c.Param("id"), c.Param("year"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered grade sheet
// @Tags Grades
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /grades/print/{token} [get]
func (h *GradeGridHandler) Download(c *gin.Context) {
	artifact, err := h.prints.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, artifact.Filename, artifact.ContentType, artifact.Data)
}
