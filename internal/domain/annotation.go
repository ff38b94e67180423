package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnnotationObject is one labeled bounding box. Coordinates are the box
// center plus width/height, normalized to the image's own dimensions.
type AnnotationObject struct {
	ClassID   string  `json:"class_id"`
	ClassName string  `json:"class_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Annotation is the single per-(project, image, user) annotation document.
// Repeat saves replace it in place; Version increments on every save.
type Annotation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	ImageID   uuid.UUID `gorm:"type:uuid;not null;index:idx_annotation_image_user,unique" json:"image_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_annotation_image_user,unique" json:"user_id"`

	Objects       datatypes.JSON `gorm:"column:objects;type:jsonb" json:"objects"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	TimeSpent     int            `gorm:"column:time_spent;not null;default:0" json:"time_spent"`
	AutoAnnotated bool           `gorm:"column:auto_annotated" json:"auto_annotated"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Annotation) TableName() string { return "annotation" }

func (a *Annotation) ObjectList() ([]AnnotationObject, error) {
	if len(a.Objects) == 0 {
		return nil, nil
	}
	var objects []AnnotationObject
	if err := json.Unmarshal(a.Objects, &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (a *Annotation) SetObjectList(objects []AnnotationObject) error {
	if objects == nil {
		objects = []AnnotationObject{}
	}
	raw, err := json.Marshal(objects)
	if err != nil {
		return err
	}
	a.Objects = datatypes.JSON(raw)
	return nil
}
