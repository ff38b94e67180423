package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
)

func TestImageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewImageRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "imagerepo@example.com")
	p := testutil.SeedProject(t, ctx, tx, u.ID)
	a := testutil.SeedAssignment(t, ctx, tx, p.ID, u.ID, u.ID, 2)

	img1 := testutil.SeedImage(t, ctx, tx, p.ID, u.ID, "one.jpg")
	img2 := testutil.SeedImage(t, ctx, tx, p.ID, u.ID, "two.jpg")

	if got, err := repo.GetByID(dbc, img1.ID); err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if rows, err := repo.GetByProjectID(dbc, p.ID); err != nil || len(rows) != 2 {
		t.Fatalf("GetByProjectID: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpdateFieldsBatch(dbc, []uuid.UUID{img1.ID, img2.ID}, map[string]any{
		"assigned_to":   u.ID,
		"assignment_id": a.ID,
	}); err != nil {
		t.Fatalf("UpdateFieldsBatch: %v", err)
	}
	if rows, err := repo.GetByAssignmentID(dbc, a.ID); err != nil || len(rows) != 2 {
		t.Fatalf("GetByAssignmentID: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByProjectAndAssignee(dbc, p.ID, u.ID); err != nil || len(rows) != 2 {
		t.Fatalf("GetByProjectAndAssignee: err=%v len=%d", err, len(rows))
	}

	now := time.Now().UTC()
	if err := repo.UpdateFields(dbc, img1.ID, map[string]any{
		"status":            domain.ImageStatusAnnotated,
		"annotation_status": domain.AnnotationStatusCompleted,
		"annotated_by":      u.ID,
		"annotated_at":      now,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	if count, err := repo.CountByProjectID(dbc, p.ID); err != nil || count != 2 {
		t.Fatalf("CountByProjectID: err=%v count=%d", err, count)
	}
	if count, err := repo.CountByAnnotationStatus(dbc, p.ID, domain.AnnotationStatusCompleted); err != nil || count != 1 {
		t.Fatalf("CountByAnnotationStatus: err=%v count=%d", err, count)
	}
	if count, err := repo.CountCompletedByAssignment(dbc, a.ID); err != nil || count != 1 {
		t.Fatalf("CountCompletedByAssignment: err=%v count=%d", err, count)
	}

	if err := repo.UpdateFields(dbc, img1.ID, map[string]any{"review_status": domain.ReviewStatusApproved}); err != nil {
		t.Fatalf("UpdateFields review_status: %v", err)
	}
	statuses := []domain.ReviewStatus{domain.ReviewStatusApproved, domain.ReviewStatusFlagged}
	if count, err := repo.CountByReviewStatuses(dbc, p.ID, statuses); err != nil || count != 1 {
		t.Fatalf("CountByReviewStatuses: err=%v count=%d", err, count)
	}

	if err := repo.FullDeleteByID(dbc, img1.ID); err != nil {
		t.Fatalf("FullDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, img1.ID); err != nil || got != nil {
		t.Fatalf("after FullDeleteByID GetByID: err=%v got=%v", err, got)
	}

	if err := repo.FullDeleteByProjectID(dbc, p.ID); err != nil {
		t.Fatalf("FullDeleteByProjectID: %v", err)
	}
	if count, err := repo.CountByProjectID(dbc, p.ID); err != nil || count != 0 {
		t.Fatalf("after FullDeleteByProjectID count: err=%v count=%d", err, count)
	}
}
