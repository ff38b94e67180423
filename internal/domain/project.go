package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusCreated    ProjectStatus = "CREATED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusArchived   ProjectStatus = "ARCHIVED"
)

// ProjectClass is one entry in a project's fixed class list. A box's class
// index in the YOLO mirror is the class's zero-based position in this list.
type ProjectClass struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsCustom bool   `json:"is_custom"`
}

type Project struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	Description        string         `json:"description"`
	Classes            datatypes.JSON `gorm:"column:classes;type:jsonb" json:"classes"`
	AllowCustomClasses bool           `gorm:"column:allow_custom_classes" json:"allow_custom_classes"`
	Status             ProjectStatus  `gorm:"not null;default:'CREATED'" json:"status"`

	// Derived counters, written only by the statistics aggregator.
	TotalImages          int `gorm:"column:total_images;not null;default:0" json:"total_images"`
	AnnotatedImages      int `gorm:"column:annotated_images;not null;default:0" json:"annotated_images"`
	ReviewedImages       int `gorm:"column:reviewed_images;not null;default:0" json:"reviewed_images"`
	ApprovedImages       int `gorm:"column:approved_images;not null;default:0" json:"approved_images"`
	CompletionPercentage int `gorm:"column:completion_percentage;not null;default:0" json:"completion_percentage"`

	CreatedBy uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }

func (p *Project) ClassList() ([]ProjectClass, error) {
	if len(p.Classes) == 0 {
		return nil, nil
	}
	var classes []ProjectClass
	if err := json.Unmarshal(p.Classes, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

func (p *Project) SetClassList(classes []ProjectClass) error {
	raw, err := json.Marshal(classes)
	if err != nil {
		return err
	}
	p.Classes = datatypes.JSON(raw)
	return nil
}

type ProjectMember struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index:idx_project_member_pair,unique" json:"project_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_project_member_pair,unique" json:"user_id"`
	Role      string         `gorm:"not null;default:'annotator'" json:"role"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProjectMember) TableName() string { return "project_member" }

// ProjectStats is the derived read model served to dashboards. It mirrors the
// counters on Project at the time of the last recomputation.
type ProjectStats struct {
	ProjectID            uuid.UUID `json:"project_id"`
	TotalImages          int       `json:"total_images"`
	AnnotatedImages      int       `json:"annotated_images"`
	ReviewedImages       int       `json:"reviewed_images"`
	ApprovedImages       int       `json:"approved_images"`
	CompletionPercentage int       `json:"completion_percentage"`
}
