package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
)

// ProjectInput is the create payload. Classes keep their caller-supplied
// order; a box's class index in the label mirror is its position here.
type ProjectInput struct {
	Name               string
	Description        string
	Classes            []domain.ProjectClass
	AllowCustomClasses bool
}

type ProjectService interface {
	Create(dbc dbctx.Context, creatorID uuid.UUID, input ProjectInput) (*domain.Project, error)
	GetByID(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) (*domain.Project, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, isAdmin bool) ([]*domain.Project, error)
	AddMembers(dbc dbctx.Context, projectID, actorID uuid.UUID, userIDs []uuid.UUID) ([]*domain.ProjectMember, error)
	// MarkComplete is the guarded CREATED/IN_PROGRESS→COMPLETED transition.
	// Preconditions are checked in order: non-empty project, every image
	// approved, no live submissions. Success seals only the project row.
	MarkComplete(dbc dbctx.Context, projectID, actorID uuid.UUID) (*domain.Project, error)
	Delete(dbc dbctx.Context, projectID, actorID uuid.UUID) error
}

type projectService struct {
	db             *gorm.DB
	log            *logger.Logger
	bucket         gcp.BucketService
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	annotationRepo repos.AnnotationRepo
	assignmentRepo repos.AssignmentRepo
	submissionRepo repos.SubmissionRepo
	statsService   StatsService
}

func NewProjectService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	annotationRepo repos.AnnotationRepo,
	assignmentRepo repos.AssignmentRepo,
	submissionRepo repos.SubmissionRepo,
	statsService StatsService,
) ProjectService {
	return &projectService{
		db:             db,
		log:            baseLog.With("service", "ProjectService"),
		bucket:         bucket,
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		annotationRepo: annotationRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		statsService:   statsService,
	}
}

func (s *projectService) Create(dbc dbctx.Context, creatorID uuid.UUID, input ProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apierr.Validation("project_name_required", fmt.Errorf("project name is required"))
	}
	if len(input.Classes) == 0 {
		return nil, apierr.Validation("project_classes_required", fmt.Errorf("at least one class is required"))
	}
	seen := make(map[string]bool, len(input.Classes))
	for _, c := range input.Classes {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return nil, apierr.Validation("invalid_class", fmt.Errorf("class id and name are required"))
		}
		if seen[c.ID] {
			return nil, apierr.Validation("duplicate_class", fmt.Errorf("class id %q appears twice", c.ID))
		}
		seen[c.ID] = true
	}

	now := time.Now()
	project := &domain.Project{
		ID:                 uuid.New(),
		Name:               name,
		Description:        input.Description,
		AllowCustomClasses: input.AllowCustomClasses,
		Status:             domain.ProjectStatusCreated,
		CreatedBy:          creatorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := project.SetClassList(input.Classes); err != nil {
		return nil, fmt.Errorf("encode classes: %w", err)
	}
	if _, err := s.projectRepo.Create(dbc, []*domain.Project{project}); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if _, err := s.memberRepo.Create(dbc, []*domain.ProjectMember{{
		ID:        uuid.New(),
		ProjectID: project.ID,
		UserID:    creatorID,
		Role:      domain.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}}); err != nil {
		return nil, fmt.Errorf("add creator membership: %w", err)
	}
	s.log.Info("project created", "project_id", project.ID, "class_count", len(input.Classes))
	return project, nil
}

func (s *projectService) GetByID(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) (*domain.Project, error) {
	return resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, isAdmin)
}

func (s *projectService) ListForUser(dbc dbctx.Context, userID uuid.UUID, isAdmin bool) ([]*domain.Project, error) {
	return s.projectRepo.ListByMemberUserID(dbc, userID)
}

func (s *projectService) AddMembers(dbc dbctx.Context, projectID, actorID uuid.UUID, userIDs []uuid.UUID) ([]*domain.ProjectMember, error) {
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, true); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []*domain.ProjectMember{}, nil
	}

	now := time.Now()
	members := make([]*domain.ProjectMember, 0, len(userIDs))
	for _, userID := range userIDs {
		existing, err := s.memberRepo.GetByProjectAndUser(dbc, projectID, userID)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if existing != nil {
			continue
		}
		members = append(members, &domain.ProjectMember{
			ID:        uuid.New(),
			ProjectID: projectID,
			UserID:    userID,
			Role:      domain.RoleAnnotator,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if _, err := s.memberRepo.Create(dbc, members); err != nil {
		return nil, fmt.Errorf("add members: %w", err)
	}
	return members, nil
}

func (s *projectService) MarkComplete(dbc dbctx.Context, projectID, actorID uuid.UUID) (*domain.Project, error) {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, true)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.ProjectStatusCompleted || project.Status == domain.ProjectStatusArchived {
		return nil, apierr.Conflict("project_not_completable", fmt.Errorf("project status %s does not permit completion", project.Status))
	}

	// Recompute first so the verdict reflects current counts, not the last
	// cached aggregation.
	stats, err := s.statsService.RecomputeProject(dbc, projectID)
	if err != nil {
		return nil, fmt.Errorf("recompute stats: %w", err)
	}

	if stats.TotalImages == 0 {
		return nil, apierr.Conflict("project_empty", fmt.Errorf("cannot complete a project with no images"))
	}
	if stats.ApprovedImages < stats.TotalImages {
		return nil, apierr.Conflict("images_not_approved", fmt.Errorf("only %d of %d images approved", stats.ApprovedImages, stats.TotalImages))
	}
	pending, err := s.submissionRepo.CountLiveByProjectID(dbc, projectID)
	if err != nil {
		return nil, fmt.Errorf("count live submissions: %w", err)
	}
	if pending > 0 {
		return nil, apierr.Conflict("submissions_pending", fmt.Errorf("%d submissions still under review", pending))
	}

	if err := s.projectRepo.UpdateFields(dbc, projectID, map[string]any{
		"status": domain.ProjectStatusCompleted,
	}); err != nil {
		return nil, fmt.Errorf("seal project: %w", err)
	}
	s.log.Info("project completed", "project_id", projectID)
	return s.projectRepo.GetByID(dbc, projectID)
}

// Delete cascades per collection inside one transaction, then clears storage
// objects best-effort after commit.
func (s *projectService) Delete(dbc dbctx.Context, projectID, actorID uuid.UUID) error {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, true)
	if err != nil {
		return err
	}

	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.annotationRepo.FullDeleteByProjectID(txc, projectID); err != nil {
			return fmt.Errorf("delete annotations: %w", err)
		}
		if err := s.submissionRepo.FullDeleteByProjectID(txc, projectID); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if err := s.assignmentRepo.FullDeleteByProjectID(txc, projectID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if err := s.imageRepo.FullDeleteByProjectID(txc, projectID); err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
		if err := s.memberRepo.FullDeleteByProjectID(txc, projectID); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if err := s.projectRepo.FullDeleteByID(txc, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("projects/%s/", projectID)
	if err := s.bucket.DeletePrefix(dbc.Ctx, prefix); err != nil {
		s.log.Warn("storage cleanup failed after project delete", "project_id", projectID, "error", err)
	}
	s.log.Info("project deleted", "project_id", projectID, "name", project.Name)
	return nil
}
