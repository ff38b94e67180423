package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

type AssignmentService interface {
	// Assign binds a set of unassigned project images to one annotator.
	Assign(dbc dbctx.Context, projectID, assigneeID, actorID uuid.UUID, imageIDs []uuid.UUID) (*domain.Assignment, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Assignment, error)
	ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.Assignment, error)
	GetByID(dbc dbctx.Context, assignmentID, actorID uuid.UUID, isAdmin bool) (*domain.Assignment, error)
}

type assignmentService struct {
	log            *logger.Logger
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	assignmentRepo repos.AssignmentRepo
}

func NewAssignmentService(
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	assignmentRepo repos.AssignmentRepo,
) AssignmentService {
	return &assignmentService{
		log:            baseLog.With("service", "AssignmentService"),
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		assignmentRepo: assignmentRepo,
	}
}

func (s *assignmentService) Assign(dbc dbctx.Context, projectID, assigneeID, actorID uuid.UUID, imageIDs []uuid.UUID) (*domain.Assignment, error) {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, true)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.ProjectStatusCompleted || project.Status == domain.ProjectStatusArchived {
		return nil, apierr.Conflict("project_not_assignable", fmt.Errorf("project status %s does not permit assignment", project.Status))
	}
	if len(imageIDs) == 0 {
		return nil, apierr.Validation("no_images", fmt.Errorf("assignment requires at least one image"))
	}
	member, err := s.memberRepo.GetByProjectAndUser(dbc, projectID, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("check assignee membership: %w", err)
	}
	if member == nil {
		return nil, apierr.Validation("assignee_not_member", fmt.Errorf("user %s is not a member of project %s", assigneeID, projectID))
	}

	images, err := s.imageRepo.GetByIDs(dbc, imageIDs)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	if len(images) != len(imageIDs) {
		return nil, apierr.NotFound("image_not_found", fmt.Errorf("one or more images not found"))
	}
	for _, img := range images {
		if img.ProjectID != projectID {
			return nil, apierr.Validation("image_not_in_project", fmt.Errorf("image %s belongs to another project", img.ID))
		}
		if img.AssignedTo != nil {
			return nil, apierr.Conflict("image_already_assigned", fmt.Errorf("image %s is already assigned", img.ID))
		}
	}

	now := time.Now()
	assignment := &domain.Assignment{
		ID:          uuid.New(),
		ProjectID:   projectID,
		UserID:      assigneeID,
		TotalImages: len(imageIDs),
		Status:      domain.AssignmentStatusAssigned,
		AssignedBy:  actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.assignmentRepo.Create(dbc, []*domain.Assignment{assignment}); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	if err := s.imageRepo.UpdateFieldsBatch(dbc, imageIDs, map[string]any{
		"assigned_to":   assigneeID,
		"assignment_id": assignment.ID,
	}); err != nil {
		return nil, fmt.Errorf("stamp assigned images: %w", err)
	}

	s.log.Info("images assigned", "assignment_id", assignment.ID, "project_id", projectID, "image_count", len(imageIDs))
	return assignment, nil
}

func (s *assignmentService) ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Assignment, error) {
	return s.assignmentRepo.GetByUserID(dbc, userID)
}

func (s *assignmentService) ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.Assignment, error) {
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, isAdmin); err != nil {
		return nil, err
	}
	return s.assignmentRepo.GetByProjectID(dbc, projectID)
}

func (s *assignmentService) GetByID(dbc dbctx.Context, assignmentID, actorID uuid.UUID, isAdmin bool) (*domain.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(dbc, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", assignmentID))
	}
	if !isAdmin && assignment.UserID != actorID {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", assignmentID))
	}
	return assignment, nil
}
