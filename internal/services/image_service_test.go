package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

// Partial-success batch: one file's storage write fails, the rest of the
// batch still lands and the failure is reported by filename.
func TestUploadPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)

	// Storage keys keep the original extension, so a distinctive extension
	// targets exactly one file of the batch.
	env.bucket.failSuffix = ".bmp"

	files := []UploadedImage{
		{Filename: "frame-1.jpg", Content: []byte("frame-1")},
		{Filename: "frame-2.bmp", Content: []byte("frame-2")},
		{Filename: "frame-3.jpg", Content: []byte("frame-3")},
		{Filename: "frame-4.jpg", Content: []byte("frame-4")},
	}
	created, failed, err := env.images.Upload(testDBC(), project.ID, admin.ID, true, files)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created = %d images, want 3", len(created))
	}
	if len(failed) != 1 {
		t.Fatalf("failed = %v, want exactly one failure", failed)
	}
	if failed[0].Filename != "frame-2.bmp" || failed[0].Reason != "storage write failed" {
		t.Fatalf("failure = %+v, want frame-2.bmp / storage write failed", failed[0])
	}
	for _, img := range created {
		if img.Filename == "frame-2.bmp" {
			t.Fatalf("failed file got a document anyway")
		}
		if _, ok := env.bucket.object(img.StorageKey); !ok {
			t.Fatalf("stored object %s missing", img.StorageKey)
		}
	}

	p := env.reloadProject(t, project.ID)
	if p.TotalImages != 3 {
		t.Fatalf("totalImages = %d, want 3", p.TotalImages)
	}
}

func TestUploadRejectsEmptyBatchAndFiles(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)

	t.Run("empty batch", func(t *testing.T) {
		_, _, err := env.images.Upload(testDBC(), project.ID, admin.ID, true, nil)
		assertErrorCode(t, err, "no_files")
	})

	t.Run("empty file is skipped, not fatal", func(t *testing.T) {
		created, failed, err := env.images.Upload(testDBC(), project.ID, admin.ID, true, []UploadedImage{
			{Filename: "ok.jpg", Content: []byte("ok")},
			{Filename: "hollow.jpg", Content: nil},
		})
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if len(created) != 1 || len(failed) != 1 {
			t.Fatalf("created/failed = %d/%d, want 1/1", len(created), len(failed))
		}
		if failed[0].Reason != "empty file" {
			t.Fatalf("reason = %q, want %q", failed[0].Reason, "empty file")
		}
	})
}

func TestListAssignedTo(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 3)
	env.assign(t, project, admin, annotator, images[:2])

	mine, err := env.images.ListAssignedTo(testDBC(), project.ID, annotator.ID)
	if err != nil {
		t.Fatalf("ListAssignedTo: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("assigned images = %d, want 2", len(mine))
	}
	for _, img := range mine {
		if img.AssignedTo == nil || *img.AssignedTo != annotator.ID {
			t.Fatalf("image %s not assigned to annotator", img.ID)
		}
	}

	outsider := env.seedUser(t, "outsider@example.com", domain.RoleAnnotator)
	_, err = env.images.ListAssignedTo(testDBC(), project.ID, outsider.ID)
	assertErrorCode(t, err, "project_not_found")
}

func TestImageDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 2)
	env.annotate(t, project, images[0], annotator)

	t.Run("missing image deletes nothing", func(t *testing.T) {
		deleted, err := env.images.Delete(testDBC(), uuid.New(), admin.ID, true)
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if deleted {
			t.Fatalf("deleted = true for a missing image")
		}
	})

	t.Run("delete removes object, mirror, annotations and document", func(t *testing.T) {
		img := env.reloadImage(t, images[0].ID)
		labelKey := labelStorageKey(project.ID, img.ID)
		if _, ok := env.bucket.object(labelKey); !ok {
			t.Fatalf("precondition: label mirror %s missing", labelKey)
		}

		deleted, err := env.images.Delete(testDBC(), img.ID, admin.ID, true)
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if !deleted {
			t.Fatalf("deleted = false, want true")
		}
		if _, ok := env.bucket.object(img.StorageKey); ok {
			t.Fatalf("stored object %s survived delete", img.StorageKey)
		}
		if _, ok := env.bucket.object(labelKey); ok {
			t.Fatalf("label mirror %s survived delete", labelKey)
		}
		if ann, err := env.annotationRepo.GetByImageAndUser(testDBC(), img.ID, annotator.ID); err != nil || ann != nil {
			t.Fatalf("annotation survived delete: err=%v ann=%v", err, ann)
		}
		if got, err := env.imageRepo.GetByID(testDBC(), img.ID); err != nil || got != nil {
			t.Fatalf("image document survived delete: err=%v img=%v", err, got)
		}

		p := env.reloadProject(t, project.ID)
		if p.TotalImages != 1 {
			t.Fatalf("totalImages = %d after delete, want 1", p.TotalImages)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)
	images := env.seedImages(t, project, admin, 1)

	t.Run("missing image", func(t *testing.T) {
		err := env.images.UpdateStatus(testDBC(), uuid.New(), ImagePatch{})
		assertErrorCode(t, err, "image_not_found")
	})

	t.Run("sparse patch updates only named fields and recomputes", func(t *testing.T) {
		reviewStatus := domain.ReviewStatusApproved
		annotationStatus := domain.AnnotationStatusCompleted
		if err := env.images.UpdateStatus(testDBC(), images[0].ID, ImagePatch{
			ReviewStatus:     &reviewStatus,
			AnnotationStatus: &annotationStatus,
		}); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		img := env.reloadImage(t, images[0].ID)
		if img.ReviewStatus != domain.ReviewStatusApproved {
			t.Fatalf("review status = %s, want APPROVED", img.ReviewStatus)
		}
		if img.Status != domain.ImageStatusUploaded {
			t.Fatalf("status = %s, want UPLOADED untouched", img.Status)
		}
		p := env.reloadProject(t, project.ID)
		if p.ApprovedImages != 1 || p.CompletionPercentage != 100 {
			t.Fatalf("counters approved=%d completion=%d, want 1/100", p.ApprovedImages, p.CompletionPercentage)
		}
	})

	t.Run("clear flags null the optional columns", func(t *testing.T) {
		if err := env.images.UpdateStatus(testDBC(), images[0].ID, ImagePatch{
			ClearAssignedTo:        true,
			ClearCurrentSubmission: true,
		}); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		img := env.reloadImage(t, images[0].ID)
		if img.AssignedTo != nil || img.AssignmentID != nil || img.CurrentSubmissionID != nil {
			t.Fatalf("optional columns not cleared: %+v", img)
		}
	})
}

func TestSignedURL(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	project := env.seedProject(t, admin)
	images := env.seedImages(t, project, admin, 1)

	u, err := env.images.SignedURL(testDBC(), images[0].ID, 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if !strings.HasSuffix(u, images[0].StorageKey) {
		t.Fatalf("signed url %q does not reference storage key %q", u, images[0].StorageKey)
	}

	_, err = env.images.SignedURL(testDBC(), uuid.New(), 15*time.Minute)
	assertErrorCode(t, err, "image_not_found")
}
