package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func TestRecomputeProject(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 3)

	env.annotate(t, project, images[0], annotator)
	env.annotate(t, project, images[1], annotator)
	if err := env.imageRepo.UpdateFields(testDBC(), images[0].ID, map[string]any{
		"review_status": domain.ReviewStatusApproved,
	}); err != nil {
		t.Fatalf("approve image: %v", err)
	}
	if err := env.imageRepo.UpdateFields(testDBC(), images[1].ID, map[string]any{
		"review_status": domain.ReviewStatusFlagged,
	}); err != nil {
		t.Fatalf("flag image: %v", err)
	}

	stats, err := env.stats.RecomputeProject(testDBC(), project.ID)
	if err != nil {
		t.Fatalf("RecomputeProject: %v", err)
	}
	if stats.TotalImages != 3 {
		t.Fatalf("total = %d, want 3", stats.TotalImages)
	}
	if stats.AnnotatedImages != 2 {
		t.Fatalf("annotated = %d, want 2", stats.AnnotatedImages)
	}
	// Reviewed counts both verdicts; approved only the one.
	if stats.ReviewedImages != 2 {
		t.Fatalf("reviewed = %d, want 2", stats.ReviewedImages)
	}
	if stats.ApprovedImages != 1 {
		t.Fatalf("approved = %d, want 1", stats.ApprovedImages)
	}
	if stats.CompletionPercentage != 33 {
		t.Fatalf("completion = %d, want 33", stats.CompletionPercentage)
	}

	// Counters land on the project row.
	p := env.reloadProject(t, project.ID)
	if p.TotalImages != 3 || p.AnnotatedImages != 2 || p.ReviewedImages != 2 || p.ApprovedImages != 1 {
		t.Fatalf("project counters = %d/%d/%d/%d, want 3/2/2/1",
			p.TotalImages, p.AnnotatedImages, p.ReviewedImages, p.ApprovedImages)
	}
}

func TestRecomputeEmptyProject(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)

	stats, err := env.stats.RecomputeProject(testDBC(), project.ID)
	if err != nil {
		t.Fatalf("RecomputeProject: %v", err)
	}
	if stats.TotalImages != 0 || stats.CompletionPercentage != 0 {
		t.Fatalf("stats = %+v, want all zero", stats)
	}
}

// Recompute self-heals: counters corrupted out of band come back correct on
// the next mutation-driven recompute.
func TestRecomputeCorrectsDrift(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)
	env.seedImages(t, project, admin, 2)

	if err := env.projectRepo.UpdateFields(testDBC(), project.ID, map[string]any{
		"total_images":          99,
		"completion_percentage": 99,
	}); err != nil {
		t.Fatalf("corrupt counters: %v", err)
	}

	stats, err := env.stats.RecomputeProject(testDBC(), project.ID)
	if err != nil {
		t.Fatalf("RecomputeProject: %v", err)
	}
	if stats.TotalImages != 2 || stats.CompletionPercentage != 0 {
		t.Fatalf("stats = %+v, want 2 images / 0%%", stats)
	}
	p := env.reloadProject(t, project.ID)
	if p.TotalImages != 2 || p.CompletionPercentage != 0 {
		t.Fatalf("project counters = %d/%d, want 2/0", p.TotalImages, p.CompletionPercentage)
	}
}

func TestGetProjectStats(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)
	env.seedImages(t, project, admin, 1)

	stats, err := env.stats.GetProjectStats(testDBC().Ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProjectStats: %v", err)
	}
	if stats.ProjectID != project.ID || stats.TotalImages != 1 {
		t.Fatalf("stats = %+v, want 1 image for %s", stats, project.ID)
	}

	_, err = env.stats.GetProjectStats(testDBC().Ctx, uuid.New())
	assertErrorCode(t, err, "project_not_found")
}

func TestCompletionPercentage(t *testing.T) {
	cases := []struct {
		approved, total, want int
	}{
		{0, 0, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{4, 5, 80},
		{5, 5, 100},
	}
	for _, c := range cases {
		if got := completionPercentage(c.approved, c.total); got != c.want {
			t.Errorf("completionPercentage(%d, %d) = %d, want %d", c.approved, c.total, got, c.want)
		}
	}
}
