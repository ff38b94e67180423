package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

// resolveProjectForMember loads a project and verifies the actor may see it.
// Non-members get the same not-found as a missing project so resource
// existence never leaks. Admin roles bypass the membership check.
func resolveProjectForMember(
	dbc dbctx.Context,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	projectID, userID uuid.UUID,
	isAdmin bool,
) (*domain.Project, error) {
	project, err := projectRepo.GetByID(dbc, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project_not_found", fmt.Errorf("project %s not found", projectID))
	}
	if isAdmin {
		return project, nil
	}
	member, err := memberRepo.GetByProjectAndUser(dbc, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("load project member: %w", err)
	}
	if member == nil {
		return nil, apierr.NotFound("project_not_found", fmt.Errorf("project %s not found", projectID))
	}
	return project, nil
}
