package services

import (
	"fmt"
	"testing"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func TestAnnotationSave(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 2)
	env.assign(t, project, admin, annotator, images)

	objects := []domain.AnnotationObject{
		{ClassID: "cls-car", ClassName: "car", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
	}

	t.Run("first save creates version 1 and completes the image", func(t *testing.T) {
		ann, err := env.annotations.Save(testDBC(), project.ID, images[0].ID, annotator.ID, false, objects, 30, false)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if ann.Version != 1 {
			t.Fatalf("version = %d, want 1", ann.Version)
		}
		if ann.TimeSpent != 30 {
			t.Fatalf("timeSpent = %d, want 30", ann.TimeSpent)
		}

		img := env.reloadImage(t, images[0].ID)
		if img.Status != domain.ImageStatusAnnotated {
			t.Fatalf("image status = %s, want ANNOTATED", img.Status)
		}
		if img.AnnotationStatus != domain.AnnotationStatusCompleted {
			t.Fatalf("annotation status = %s, want COMPLETED", img.AnnotationStatus)
		}
		if img.AnnotatedBy == nil || *img.AnnotatedBy != annotator.ID {
			t.Fatalf("annotatedBy = %v, want %s", img.AnnotatedBy, annotator.ID)
		}
		if img.TimeSpent != 30 {
			t.Fatalf("image timeSpent = %d, want 30", img.TimeSpent)
		}
	})

	t.Run("repeat save replaces the document in place", func(t *testing.T) {
		replaced := []domain.AnnotationObject{
			{ClassID: "cls-person", ClassName: "person", X: 0.3, Y: 0.3, Width: 0.1, Height: 0.2},
		}
		ann, err := env.annotations.Save(testDBC(), project.ID, images[0].ID, annotator.ID, false, replaced, 15, false)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if ann.Version != 2 {
			t.Fatalf("version = %d, want 2", ann.Version)
		}
		if ann.TimeSpent != 45 {
			t.Fatalf("timeSpent = %d, want 45 (accumulated)", ann.TimeSpent)
		}

		stored, err := env.annotationRepo.GetByImageAndUser(testDBC(), images[0].ID, annotator.ID)
		if err != nil || stored == nil {
			t.Fatalf("load annotation: err=%v ann=%v", err, stored)
		}
		list, err := stored.ObjectList()
		if err != nil {
			t.Fatalf("decode objects: %v", err)
		}
		if len(list) != 1 || list[0].ClassID != "cls-person" {
			t.Fatalf("objects = %+v, want single cls-person box", list)
		}
	})

	t.Run("save raises assignment progress", func(t *testing.T) {
		img := env.reloadImage(t, images[0].ID)
		assignment, err := env.assignmentRepo.GetByID(testDBC(), *img.AssignmentID)
		if err != nil || assignment == nil {
			t.Fatalf("load assignment: err=%v a=%v", err, assignment)
		}
		if assignment.CompletedImages != 1 {
			t.Fatalf("completedImages = %d, want 1", assignment.CompletedImages)
		}
		if assignment.Status != domain.AssignmentStatusInProgress {
			t.Fatalf("assignment status = %s, want IN_PROGRESS", assignment.Status)
		}
	})

	t.Run("non-member save reads as project not found", func(t *testing.T) {
		outsider := env.seedUser(t, "outsider@example.com", domain.RoleAnnotator)
		_, err := env.annotations.Save(testDBC(), project.ID, images[1].ID, outsider.ID, false, objects, 5, false)
		assertErrorCode(t, err, "project_not_found")
	})
}

func TestAnnotationSaveWritesLabelMirror(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 1)

	objects := []domain.AnnotationObject{
		{ClassID: "cls-person", ClassName: "person", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
		{ClassID: "cls-ghost", ClassName: "ghost", X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4},
	}
	if _, err := env.annotations.Save(testDBC(), project.ID, images[0].ID, annotator.ID, false, objects, 10, false); err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := fmt.Sprintf("projects/%s/labels/%s.txt", project.ID, images[0].ID)
	raw, ok := env.bucket.object(key)
	if !ok {
		t.Fatalf("label mirror %s not written", key)
	}
	// cls-person is class index 1; the unknown class id falls back to 0.
	want := "1 0.500000 0.500000 0.250000 0.250000\n0 0.100000 0.200000 0.300000 0.400000"
	if string(raw) != want {
		t.Fatalf("mirror content = %q, want %q", raw, want)
	}
}

func TestAnnotationSaveMirrorFailure(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 1)

	// Label mirrors end in .txt; image objects keep their own extension, so
	// only the mirror write fails.
	env.bucket.failSuffix = ".txt"

	objects := []domain.AnnotationObject{
		{ClassID: "cls-car", ClassName: "car", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
	}
	_, err := env.annotations.Save(testDBC(), project.ID, images[0].ID, annotator.ID, false, objects, 10, false)
	assertErrorCode(t, err, "label_mirror_write_failed")

	// The annotation write itself still happened; the mirror is written last.
	stored, err := env.annotationRepo.GetByImageAndUser(testDBC(), images[0].ID, annotator.ID)
	if err != nil || stored == nil {
		t.Fatalf("annotation missing after mirror failure: err=%v ann=%v", err, stored)
	}
}

func TestAnnotationAutosave(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 1)

	objects := []domain.AnnotationObject{
		{ClassID: "cls-car", ClassName: "car", X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2},
	}

	t.Run("first autosave moves UNANNOTATED to IN_PROGRESS", func(t *testing.T) {
		ann, err := env.annotations.Autosave(testDBC(), project.ID, images[0].ID, annotator.ID, false, objects, 5, false)
		if err != nil {
			t.Fatalf("Autosave: %v", err)
		}
		if ann.Version != 1 {
			t.Fatalf("version = %d, want 1", ann.Version)
		}
		img := env.reloadImage(t, images[0].ID)
		if img.AnnotationStatus != domain.AnnotationStatusInProgress {
			t.Fatalf("annotation status = %s, want IN_PROGRESS", img.AnnotationStatus)
		}
		if img.Status != domain.ImageStatusUploaded {
			t.Fatalf("image status = %s, want UPLOADED (autosave never completes)", img.Status)
		}
	})

	t.Run("autosave never writes the label mirror", func(t *testing.T) {
		key := fmt.Sprintf("projects/%s/labels/%s.txt", project.ID, images[0].ID)
		if _, ok := env.bucket.object(key); ok {
			t.Fatalf("autosave wrote label mirror %s", key)
		}
	})

	t.Run("autosave after completion leaves COMPLETED alone", func(t *testing.T) {
		env.annotate(t, project, images[0], annotator)
		if _, err := env.annotations.Autosave(testDBC(), project.ID, images[0].ID, annotator.ID, false, objects, 5, false); err != nil {
			t.Fatalf("Autosave: %v", err)
		}
		img := env.reloadImage(t, images[0].ID)
		if img.AnnotationStatus != domain.AnnotationStatusCompleted {
			t.Fatalf("annotation status = %s, want COMPLETED untouched", img.AnnotationStatus)
		}
	})
}

func TestAnnotationGet(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin)
	annotator := env.seedUser(t, "annotator@example.com", domain.RoleAnnotator)
	project := env.seedProject(t, admin, annotator)
	images := env.seedImages(t, project, admin, 1)
	env.annotate(t, project, images[0], annotator)

	t.Run("annotator reads their own annotation", func(t *testing.T) {
		ann, err := env.annotations.Get(testDBC(), project.ID, images[0].ID, annotator.ID, false)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ann == nil || ann.UserID != annotator.ID {
			t.Fatalf("annotation = %+v, want one owned by annotator", ann)
		}
	})

	t.Run("admin reads the latest annotation regardless of author", func(t *testing.T) {
		ann, err := env.annotations.Get(testDBC(), project.ID, images[0].ID, admin.ID, true)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ann == nil || ann.UserID != annotator.ID {
			t.Fatalf("annotation = %+v, want annotator's document", ann)
		}
	})
}
