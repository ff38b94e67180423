package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func TestAssign(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	outsider := env.seedUser(t, "outsider@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 3)

	imageIDs := func(imgs []*domain.ProjectImage) []uuid.UUID {
		ids := make([]uuid.UUID, len(imgs))
		for i, img := range imgs {
			ids[i] = img.ID
		}
		return ids
	}

	t.Run("requires at least one image", func(t *testing.T) {
		_, err := env.assignments.Assign(testDBC(), project.ID, annotator.ID, admin.ID, nil)
		assertErrorCode(t, err, "no_images")
	})

	t.Run("assignee must be a member", func(t *testing.T) {
		_, err := env.assignments.Assign(testDBC(), project.ID, outsider.ID, admin.ID, imageIDs(images[:1]))
		assertErrorCode(t, err, "assignee_not_member")
	})

	t.Run("stamps every image with the assignment", func(t *testing.T) {
		assignment, err := env.assignments.Assign(testDBC(), project.ID, annotator.ID, admin.ID, imageIDs(images[:2]))
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if assignment.TotalImages != 2 {
			t.Fatalf("totalImages = %d, want 2", assignment.TotalImages)
		}
		if assignment.Status != domain.AssignmentStatusAssigned {
			t.Fatalf("status = %s, want ASSIGNED", assignment.Status)
		}
		for _, img := range images[:2] {
			reloaded := env.reloadImage(t, img.ID)
			if reloaded.AssignedTo == nil || *reloaded.AssignedTo != annotator.ID {
				t.Fatalf("image %s assignedTo = %v, want %s", img.ID, reloaded.AssignedTo, annotator.ID)
			}
			if reloaded.AssignmentID == nil || *reloaded.AssignmentID != assignment.ID {
				t.Fatalf("image %s assignmentID = %v, want %s", img.ID, reloaded.AssignmentID, assignment.ID)
			}
		}
	})

	t.Run("already assigned images are rejected", func(t *testing.T) {
		_, err := env.assignments.Assign(testDBC(), project.ID, annotator.ID, admin.ID, imageIDs(images[:1]))
		assertErrorCode(t, err, "image_already_assigned")
	})

	t.Run("foreign image is rejected", func(t *testing.T) {
		otherProject := env.seedProject(t, admin, annotator)
		foreign := env.seedImages(t, otherProject, admin, 1)
		_, err := env.assignments.Assign(testDBC(), project.ID, annotator.ID, admin.ID, imageIDs(foreign))
		assertErrorCode(t, err, "image_not_in_project")
	})
}

func TestUserDashboard(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 3)
	env.assign(t, project, admin, annotator, images)
	env.annotate(t, project, images[0], annotator)
	env.annotate(t, project, images[1], annotator)
	if err := env.imageRepo.UpdateFields(testDBC(), images[0].ID, map[string]any{
		"review_status": domain.ReviewStatusApproved,
	}); err != nil {
		t.Fatalf("approve image: %v", err)
	}
	if _, err := env.stats.RecomputeProject(testDBC(), project.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	dash, err := env.dashboard.GetUserDashboard(testDBC(), annotator.ID)
	if err != nil {
		t.Fatalf("GetUserDashboard: %v", err)
	}
	if len(dash.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(dash.Projects))
	}
	if dash.Projects[0].TotalImages != 3 || dash.Projects[0].ApprovedImages != 1 {
		t.Fatalf("project summary = %+v, want 3 total / 1 approved", dash.Projects[0])
	}
	if dash.ActiveAssignments != 1 {
		t.Fatalf("activeAssignments = %d, want 1", dash.ActiveAssignments)
	}
	if dash.TotalAssigned != 3 || dash.Completed != 2 || dash.Approved != 1 || dash.Flagged != 0 {
		t.Fatalf("counts assigned/completed/approved/flagged = %d/%d/%d/%d, want 3/2/1/0",
			dash.TotalAssigned, dash.Completed, dash.Approved, dash.Flagged)
	}

	t.Run("user with no memberships sees an empty dashboard", func(t *testing.T) {
		loner := env.seedUser(t, "loner@example.com", domain.RoleAnnotator)
		dash, err := env.dashboard.GetUserDashboard(testDBC(), loner.ID)
		if err != nil {
			t.Fatalf("GetUserDashboard: %v", err)
		}
		if len(dash.Projects) != 0 || dash.TotalAssigned != 0 {
			t.Fatalf("dashboard = %+v, want empty", dash)
		}
	})
}
