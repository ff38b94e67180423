package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type SubmissionRepo interface {
	Create(dbc dbctx.Context, submissions []*domain.Submission) ([]*domain.Submission, error)
	GetByID(dbc dbctx.Context, submissionID uuid.UUID) (*domain.Submission, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Submission, error)
	GetByUserAndProject(dbc dbctx.Context, userID, projectID uuid.UUID) ([]*domain.Submission, error)
	GetLiveByAssignmentID(dbc dbctx.Context, assignmentID uuid.UUID) (*domain.Submission, error)
	CountLiveByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, submissionID uuid.UUID, fields map[string]any) error
	UpdateFieldsWithVersion(dbc dbctx.Context, submissionID uuid.UUID, version int, fields map[string]any) (int64, error)
	FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func liveStatuses() []domain.SubmissionStatus {
	return []domain.SubmissionStatus{domain.SubmissionStatusSubmitted, domain.SubmissionStatusUnderReview}
}

func (r *submissionRepo) Create(dbc dbctx.Context, submissions []*domain.Submission) ([]*domain.Submission, error) {
	if len(submissions) == 0 {
		return []*domain.Submission{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepo) GetByID(dbc dbctx.Context, submissionID uuid.UUID) (*domain.Submission, error) {
	var results []*domain.Submission
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", submissionID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *submissionRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Submission, error) {
	var results []*domain.Submission
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionRepo) GetByUserAndProject(dbc dbctx.Context, userID, projectID uuid.UUID) ([]*domain.Submission, error) {
	var results []*domain.Submission
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionRepo) GetLiveByAssignmentID(dbc dbctx.Context, assignmentID uuid.UUID) (*domain.Submission, error) {
	var results []*domain.Submission
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("assignment_id = ? AND status IN ?", assignmentID, liveStatuses()).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *submissionRepo) CountLiveByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Submission{}).
		Where("project_id = ? AND status IN ?", projectID, liveStatuses()).
		Count(&count).Error
	return count, err
}

func (r *submissionRepo) UpdateFields(dbc dbctx.Context, submissionID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Submission{}).
		Where("id = ?", submissionID).
		Updates(fields).Error
}

// UpdateFieldsWithVersion applies fields only when the stored review_version
// still matches. Callers use the returned row count to detect a concurrent
// review decision.
func (r *submissionRepo) UpdateFieldsWithVersion(dbc dbctx.Context, submissionID uuid.UUID, version int, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	fields["review_version"] = version + 1
	result := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Submission{}).
		Where("id = ? AND review_version = ?", submissionID, version).
		Updates(fields)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *submissionRepo) FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("project_id = ?", projectID).
		Delete(&domain.Submission{}).Error
}
