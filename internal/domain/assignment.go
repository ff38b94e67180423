package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentStatusAssigned      AssignmentStatus = "ASSIGNED"
	AssignmentStatusInProgress    AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusSubmitted     AssignmentStatus = "SUBMITTED"
	AssignmentStatusNeedsRevision AssignmentStatus = "NEEDS_REVISION"
	AssignmentStatusCompleted     AssignmentStatus = "COMPLETED"
)

// SubmissionEligible reports whether a new submission may be created for an
// assignment in this status.
func (s AssignmentStatus) SubmissionEligible() bool {
	switch s {
	case AssignmentStatusAssigned, AssignmentStatusInProgress, AssignmentStatusNeedsRevision:
		return true
	default:
		return false
	}
}

// Assignment binds a set of project images to one annotator.
// CompletedImages is recomputed from image annotation status, never
// incremented in place.
type Assignment struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	TotalImages     int              `gorm:"column:total_images;not null;default:0" json:"total_images"`
	CompletedImages int              `gorm:"column:completed_images;not null;default:0" json:"completed_images"`
	Status          AssignmentStatus `gorm:"not null;default:'ASSIGNED'" json:"status"`
	AssignedBy      uuid.UUID        `gorm:"type:uuid;not null" json:"assigned_by"`
	CreatedAt       time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assignment) TableName() string { return "assignment" }
