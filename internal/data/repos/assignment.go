package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type AssignmentRepo interface {
	Create(dbc dbctx.Context, assignments []*domain.Assignment) ([]*domain.Assignment, error)
	GetByID(dbc dbctx.Context, assignmentID uuid.UUID) (*domain.Assignment, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Assignment, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Assignment, error)
	GetActiveByProjectAndUser(dbc dbctx.Context, projectID, userID uuid.UUID) (*domain.Assignment, error)
	UpdateFields(dbc dbctx.Context, assignmentID uuid.UUID, fields map[string]any) error
	FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *assignmentRepo) Create(dbc dbctx.Context, assignments []*domain.Assignment) ([]*domain.Assignment, error) {
	if len(assignments) == 0 {
		return []*domain.Assignment{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, assignmentID uuid.UUID) (*domain.Assignment, error) {
	var results []*domain.Assignment
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", assignmentID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *assignmentRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Assignment, error) {
	var results []*domain.Assignment
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assignmentRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Assignment, error) {
	var results []*domain.Assignment
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assignmentRepo) GetActiveByProjectAndUser(dbc dbctx.Context, projectID, userID uuid.UUID) (*domain.Assignment, error) {
	var results []*domain.Assignment
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ? AND user_id = ? AND status <> ?", projectID, userID, domain.AssignmentStatusCompleted).
		Order("created_at DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *assignmentRepo) UpdateFields(dbc dbctx.Context, assignmentID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Assignment{}).
		Where("id = ?", assignmentID).
		Updates(fields).Error
}

func (r *assignmentRepo) FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("project_id = ?", projectID).
		Delete(&domain.Assignment{}).Error
}
