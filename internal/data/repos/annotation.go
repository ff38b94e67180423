package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type AnnotationRepo interface {
	Create(dbc dbctx.Context, annotations []*domain.Annotation) ([]*domain.Annotation, error)
	GetByImageAndUser(dbc dbctx.Context, imageID, userID uuid.UUID) (*domain.Annotation, error)
	GetLatestByImageID(dbc dbctx.Context, imageID uuid.UUID) (*domain.Annotation, error)
	GetByImageIDs(dbc dbctx.Context, imageIDs []uuid.UUID) ([]*domain.Annotation, error)
	UpdateFields(dbc dbctx.Context, annotationID uuid.UUID, fields map[string]any) error
	FullDeleteByImageID(dbc dbctx.Context, imageID uuid.UUID) error
	FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: baseLog.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *annotationRepo) Create(dbc dbctx.Context, annotations []*domain.Annotation) ([]*domain.Annotation, error) {
	if len(annotations) == 0 {
		return []*domain.Annotation{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&annotations).Error; err != nil {
		return nil, err
	}
	return annotations, nil
}

func (r *annotationRepo) GetByImageAndUser(dbc dbctx.Context, imageID, userID uuid.UUID) (*domain.Annotation, error) {
	var results []*domain.Annotation
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("image_id = ? AND user_id = ?", imageID, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *annotationRepo) GetLatestByImageID(dbc dbctx.Context, imageID uuid.UUID) (*domain.Annotation, error) {
	var results []*domain.Annotation
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("image_id = ?", imageID).
		Order("updated_at DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *annotationRepo) GetByImageIDs(dbc dbctx.Context, imageIDs []uuid.UUID) ([]*domain.Annotation, error) {
	var results []*domain.Annotation
	if len(imageIDs) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("image_id IN ?", imageIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *annotationRepo) UpdateFields(dbc dbctx.Context, annotationID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Annotation{}).
		Where("id = ?", annotationID).
		Updates(fields).Error
}

func (r *annotationRepo) FullDeleteByImageID(dbc dbctx.Context, imageID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("image_id = ?", imageID).
		Delete(&domain.Annotation{}).Error
}

func (r *annotationRepo) FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("project_id = ?", projectID).
		Delete(&domain.Annotation{}).Error
}
