package dto

import "github.com/noah-isme/gradebook-api/internal/models"

// UpdateGradeLevelRequest corrects a student's current grade level.
type UpdateGradeLevelRequest struct {
	GradeLevel models.GradeLevel `json:"grade_level" validate:"required"`
}
