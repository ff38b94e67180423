package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImageStatus string

const (
	ImageStatusUploaded    ImageStatus = "UPLOADED"
	ImageStatusAnnotated   ImageStatus = "ANNOTATED"
	ImageStatusUnderReview ImageStatus = "UNDER_REVIEW"
)

type AnnotationStatus string

const (
	AnnotationStatusUnannotated AnnotationStatus = "UNANNOTATED"
	AnnotationStatusInProgress  AnnotationStatus = "IN_PROGRESS"
	AnnotationStatusCompleted   AnnotationStatus = "COMPLETED"
)

type ReviewStatus string

const (
	ReviewStatusNotReviewed ReviewStatus = "NOT_REVIEWED"
	ReviewStatusApproved    ReviewStatus = "APPROVED"
	ReviewStatusFlagged     ReviewStatus = "FLAGGED"
)

type ProjectImage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Filename   string    `gorm:"not null" json:"filename"`
	StorageKey string    `gorm:"column:storage_key;not null" json:"storage_key"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`

	Status           ImageStatus      `gorm:"not null;default:'UPLOADED'" json:"status"`
	AnnotationStatus AnnotationStatus `gorm:"column:annotation_status;not null;default:'UNANNOTATED'" json:"annotation_status"`
	ReviewStatus     ReviewStatus     `gorm:"column:review_status;not null;default:'NOT_REVIEWED'" json:"review_status"`

	AssignedTo   *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	AssignmentID *uuid.UUID `gorm:"type:uuid;index" json:"assignment_id,omitempty"`

	AnnotatedBy *uuid.UUID `gorm:"type:uuid" json:"annotated_by,omitempty"`
	AnnotatedAt *time.Time `json:"annotated_at,omitempty"`

	ReviewedBy     *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewFeedback string     `gorm:"column:review_feedback" json:"review_feedback"`

	CurrentSubmissionID *uuid.UUID `gorm:"type:uuid;index" json:"current_submission_id,omitempty"`

	AutoAnnotated bool `gorm:"column:auto_annotated" json:"auto_annotated"`
	TimeSpent     int  `gorm:"column:time_spent;not null;default:0" json:"time_spent"`

	UploadedBy uuid.UUID      `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProjectImage) TableName() string { return "project_image" }
