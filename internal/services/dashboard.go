package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

// ProjectSummary is one row of the dashboard project list, carrying the
// counters as of the last recomputation.
type ProjectSummary struct {
	ProjectID            uuid.UUID            `json:"project_id"`
	Name                 string               `json:"name"`
	Status               domain.ProjectStatus `json:"status"`
	TotalImages          int                  `json:"total_images"`
	AnnotatedImages      int                  `json:"annotated_images"`
	ReviewedImages       int                  `json:"reviewed_images"`
	ApprovedImages       int                  `json:"approved_images"`
	CompletionPercentage int                  `json:"completion_percentage"`
}

// UserDashboard aggregates a user's standing across all their assignments.
// Derived on demand from current documents, same no-drift rule as project
// stats.
type UserDashboard struct {
	Projects          []ProjectSummary `json:"projects"`
	ActiveAssignments int              `json:"active_assignments"`
	TotalAssigned     int              `json:"total_assigned"`
	Completed         int              `json:"completed"`
	Flagged           int              `json:"flagged"`
	Approved          int              `json:"approved"`
}

type DashboardService interface {
	GetUserDashboard(dbc dbctx.Context, userID uuid.UUID) (*UserDashboard, error)
}

type dashboardService struct {
	log            *logger.Logger
	projectRepo    repos.ProjectRepo
	imageRepo      repos.ImageRepo
	assignmentRepo repos.AssignmentRepo
}

func NewDashboardService(
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	imageRepo repos.ImageRepo,
	assignmentRepo repos.AssignmentRepo,
) DashboardService {
	return &dashboardService{
		log:            baseLog.With("service", "DashboardService"),
		projectRepo:    projectRepo,
		imageRepo:      imageRepo,
		assignmentRepo: assignmentRepo,
	}
}

func (s *dashboardService) GetUserDashboard(dbc dbctx.Context, userID uuid.UUID) (*UserDashboard, error) {
	dashboard := &UserDashboard{Projects: []ProjectSummary{}}

	projects, err := s.projectRepo.ListByMemberUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		dashboard.Projects = append(dashboard.Projects, ProjectSummary{
			ProjectID:            p.ID,
			Name:                 p.Name,
			Status:               p.Status,
			TotalImages:          p.TotalImages,
			AnnotatedImages:      p.AnnotatedImages,
			ReviewedImages:       p.ReviewedImages,
			ApprovedImages:       p.ApprovedImages,
			CompletionPercentage: p.CompletionPercentage,
		})
	}

	assignments, err := s.assignmentRepo.GetByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range assignments {
		if a.Status != domain.AssignmentStatusCompleted {
			dashboard.ActiveAssignments++
		}
		images, err := s.imageRepo.GetByAssignmentID(dbc, a.ID)
		if err != nil {
			return nil, fmt.Errorf("load assigned images: %w", err)
		}
		dashboard.TotalAssigned += len(images)
		for _, img := range images {
			if img.AnnotationStatus == domain.AnnotationStatusCompleted {
				dashboard.Completed++
			}
			switch img.ReviewStatus {
			case domain.ReviewStatusFlagged:
				dashboard.Flagged++
			case domain.ReviewStatusApproved:
				dashboard.Approved++
			}
		}
	}
	return dashboard, nil
}
