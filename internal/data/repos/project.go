package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, projects []*domain.Project) ([]*domain.Project, error)
	GetByID(dbc dbctx.Context, projectID uuid.UUID) (*domain.Project, error)
	GetByIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]*domain.Project, error)
	ListByMemberUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Project, error)
	UpdateFields(dbc dbctx.Context, projectID uuid.UUID, fields map[string]any) error
	FullDeleteByID(dbc dbctx.Context, projectID uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *projectRepo) Create(dbc dbctx.Context, projects []*domain.Project) ([]*domain.Project, error) {
	if len(projects) == 0 {
		return []*domain.Project{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepo) GetByID(dbc dbctx.Context, projectID uuid.UUID) (*domain.Project, error) {
	projects, err := r.GetByIDs(dbc, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}
	return projects[0], nil
}

func (r *projectRepo) GetByIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]*domain.Project, error) {
	var results []*domain.Project
	if len(projectIDs) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", projectIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) ListByMemberUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Project, error) {
	var results []*domain.Project
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Joins("JOIN project_member ON project_member.project_id = project.id").
		Where("project_member.user_id = ? AND project_member.deleted_at IS NULL", userID).
		Order("project.created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) UpdateFields(dbc dbctx.Context, projectID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Project{}).
		Where("id = ?", projectID).
		Updates(fields).Error
}

func (r *projectRepo) FullDeleteByID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("id = ?", projectID).
		Delete(&domain.Project{}).Error
}

type ProjectMemberRepo interface {
	Create(dbc dbctx.Context, members []*domain.ProjectMember) ([]*domain.ProjectMember, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.ProjectMember, error)
	GetByProjectAndUser(dbc dbctx.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error)
	FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error
}

type projectMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectMemberRepo(db *gorm.DB, baseLog *logger.Logger) ProjectMemberRepo {
	return &projectMemberRepo{db: db, log: baseLog.With("repo", "ProjectMemberRepo")}
}

func (r *projectMemberRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *projectMemberRepo) Create(dbc dbctx.Context, members []*domain.ProjectMember) ([]*domain.ProjectMember, error) {
	if len(members) == 0 {
		return []*domain.ProjectMember{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *projectMemberRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.ProjectMember, error) {
	var results []*domain.ProjectMember
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectMemberRepo) GetByProjectAndUser(dbc dbctx.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	var results []*domain.ProjectMember
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *projectMemberRepo) FullDeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("project_id = ?", projectID).
		Delete(&domain.ProjectMember{}).Error
}
