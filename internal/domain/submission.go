package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionStatusSubmitted   SubmissionStatus = "SUBMITTED"
	SubmissionStatusUnderReview SubmissionStatus = "UNDER_REVIEW"
	SubmissionStatusApproved    SubmissionStatus = "APPROVED"
	SubmissionStatusRejected    SubmissionStatus = "REJECTED"
)

// Live reports whether the submission still blocks a new submission cycle
// for its assignment.
func (s SubmissionStatus) Live() bool {
	return s == SubmissionStatusSubmitted || s == SubmissionStatusUnderReview
}

type FlaggedImage struct {
	ImageID uuid.UUID `json:"image_id"`
	Reason  string    `json:"reason"`
}

type ImageFeedbackEntry struct {
	ImageID  uuid.UUID `json:"image_id"`
	Feedback string    `json:"feedback"`
}

// ReviewRecord is one past review decision, preserved across re-submissions.
type ReviewRecord struct {
	ReviewedBy   uuid.UUID        `json:"reviewed_by"`
	ReviewedAt   time.Time        `json:"reviewed_at"`
	Status       SubmissionStatus `json:"status"`
	Feedback     string           `json:"feedback"`
	FlaggedCount int              `json:"flagged_count"`
}

// Submission covers a fixed set of images for one review cycle. ImageIDs is
// immutable once the submission exists; only status, feedback, flagged
// images, image feedback and review history mutate after creation.
type Submission struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"assignment_id"`

	ImageIDs datatypes.JSON   `gorm:"column:image_ids;type:jsonb" json:"image_ids"`
	Status   SubmissionStatus `gorm:"not null;default:'SUBMITTED'" json:"status"`
	Message  string           `json:"message"`
	Feedback string           `json:"feedback"`

	FlaggedImages datatypes.JSON `gorm:"column:flagged_images;type:jsonb" json:"flagged_images"`
	ImageFeedback datatypes.JSON `gorm:"column:image_feedback;type:jsonb" json:"image_feedback"`
	ReviewHistory datatypes.JSON `gorm:"column:review_history;type:jsonb" json:"review_history"`

	// Bumped on every review decision; a stale decision loses the
	// compare-and-swap and surfaces a conflict instead of overwriting history.
	ReviewVersion int `gorm:"column:review_version;not null;default:0" json:"review_version"`

	SubmittedAt time.Time      `gorm:"column:submitted_at;not null" json:"submitted_at"`
	ReviewedAt  *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Submission) TableName() string { return "submission" }

func (s *Submission) ImageIDList() ([]uuid.UUID, error) {
	if len(s.ImageIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(s.ImageIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Submission) SetImageIDList(ids []uuid.UUID) error {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.ImageIDs = datatypes.JSON(raw)
	return nil
}

func (s *Submission) FlaggedImageList() ([]FlaggedImage, error) {
	if len(s.FlaggedImages) == 0 {
		return nil, nil
	}
	var flagged []FlaggedImage
	if err := json.Unmarshal(s.FlaggedImages, &flagged); err != nil {
		return nil, err
	}
	return flagged, nil
}

func (s *Submission) ImageFeedbackList() ([]ImageFeedbackEntry, error) {
	if len(s.ImageFeedback) == 0 {
		return nil, nil
	}
	var entries []ImageFeedbackEntry
	if err := json.Unmarshal(s.ImageFeedback, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Submission) ReviewHistoryList() ([]ReviewRecord, error) {
	if len(s.ReviewHistory) == 0 {
		return nil, nil
	}
	var records []ReviewRecord
	if err := json.Unmarshal(s.ReviewHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func MarshalJSONColumn(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
