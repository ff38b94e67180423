package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type ImageRepo interface {
	Create(dbc dbctx.Context, images []*domain.ProjectImage) ([]*domain.ProjectImage, error)
	GetByID(dbc dbctx.Context, imageID uuid.UUID) (*domain.ProjectImage, error)
	GetByIDs(dbc dbctx.Context, imageIDs []uuid.UUID) ([]*domain.ProjectImage, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.ProjectImage, error)
	GetByAssignmentID(dbc dbctx.Context, assignmentID uuid.UUID) ([]*domain.ProjectImage, error)
	GetByProjectAndAssignee(dbc dbctx.Context, projectID, userID uuid.UUID) ([]*domain.ProjectImage, error)
	UpdateFields(dbc dbctx.Context, imageID uuid.UUID, fields map[string]any) error
	UpdateFieldsBatch(dbc dbctx.Context, imageIDs []uuid.UUID, fields map[string]any) error
	CountByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	CountByAnnotationStatus(dbc dbctx.Context, projectID uuid.UUID, status domain.AnnotationStatus) (int64, error)
	CountByReviewStatuses(dbc dbctx.Context, projectID uuid.UUID, statuses []domain.ReviewStatus) (int64, error)
	CountCompletedByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error)
	FullDeleteByID(dbc dbctx.Context, imageID uuid.UUID) error
	FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	return &imageRepo{db: db, log: baseLog.With("repo", "ImageRepo")}
}

func (r *imageRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *imageRepo) Create(dbc dbctx.Context, images []*domain.ProjectImage) ([]*domain.ProjectImage, error) {
	if len(images) == 0 {
		return []*domain.ProjectImage{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *imageRepo) GetByID(dbc dbctx.Context, imageID uuid.UUID) (*domain.ProjectImage, error) {
	images, err := r.GetByIDs(dbc, []uuid.UUID{imageID})
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images[0], nil
}

func (r *imageRepo) GetByIDs(dbc dbctx.Context, imageIDs []uuid.UUID) ([]*domain.ProjectImage, error) {
	var results []*domain.ProjectImage
	if len(imageIDs) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", imageIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *imageRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.ProjectImage, error) {
	var results []*domain.ProjectImage
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *imageRepo) GetByAssignmentID(dbc dbctx.Context, assignmentID uuid.UUID) ([]*domain.ProjectImage, error) {
	var results []*domain.ProjectImage
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *imageRepo) GetByProjectAndAssignee(dbc dbctx.Context, projectID, userID uuid.UUID) ([]*domain.ProjectImage, error) {
	var results []*domain.ProjectImage
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ? AND assigned_to = ?", projectID, userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *imageRepo) UpdateFields(dbc dbctx.Context, imageID uuid.UUID, fields map[string]any) error {
	return r.UpdateFieldsBatch(dbc, []uuid.UUID{imageID}, fields)
}

func (r *imageRepo) UpdateFieldsBatch(dbc dbctx.Context, imageIDs []uuid.UUID, fields map[string]any) error {
	if len(imageIDs) == 0 || len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.ProjectImage{}).
		Where("id IN ?", imageIDs).
		Updates(fields).Error
}

func (r *imageRepo) CountByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.ProjectImage{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

func (r *imageRepo) CountByAnnotationStatus(dbc dbctx.Context, projectID uuid.UUID, status domain.AnnotationStatus) (int64, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.ProjectImage{}).
		Where("project_id = ? AND annotation_status = ?", projectID, status).
		Count(&count).Error
	return count, err
}

func (r *imageRepo) CountByReviewStatuses(dbc dbctx.Context, projectID uuid.UUID, statuses []domain.ReviewStatus) (int64, error) {
	var count int64
	if len(statuses) == 0 {
		return 0, nil
	}
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.ProjectImage{}).
		Where("project_id = ? AND review_status IN ?", projectID, statuses).
		Count(&count).Error
	return count, err
}

func (r *imageRepo) CountCompletedByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.ProjectImage{}).
		Where("assignment_id = ? AND annotation_status = ?", assignmentID, domain.AnnotationStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *imageRepo) FullDeleteByID(dbc dbctx.Context, imageID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("id = ?", imageID).
		Delete(&domain.ProjectImage{}).Error
}

func (r *imageRepo) FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("project_id = ?", projectID).
		Delete(&domain.ProjectImage{}).Error
}
