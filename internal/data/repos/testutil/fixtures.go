package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *domain.User {
	tb.Helper()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      domain.RoleAnnotator,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, createdBy uuid.UUID) *domain.Project {
	tb.Helper()
	p := &domain.Project{
		ID:        uuid.New(),
		Name:      "project",
		Status:    domain.ProjectStatusCreated,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.SetClassList([]domain.ProjectClass{{ID: "c0", Name: "car", Color: "#ff0000"}}); err != nil {
		tb.Fatalf("seed project classes: %v", err)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedImage(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, uploadedBy uuid.UUID, filename string) *domain.ProjectImage {
	tb.Helper()
	img := &domain.ProjectImage{
		ID:               uuid.New(),
		ProjectID:        projectID,
		Filename:         filename,
		StorageKey:       "projects/" + projectID.String() + "/images/" + filename,
		Width:            640,
		Height:           480,
		Status:           domain.ImageStatusUploaded,
		AnnotationStatus: domain.AnnotationStatusUnannotated,
		ReviewStatus:     domain.ReviewStatusNotReviewed,
		UploadedBy:       uploadedBy,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(img).Error; err != nil {
		tb.Fatalf("seed image: %v", err)
	}
	return img
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, userID, assignedBy uuid.UUID, total int) *domain.Assignment {
	tb.Helper()
	a := &domain.Assignment{
		ID:          uuid.New(),
		ProjectID:   projectID,
		UserID:      userID,
		TotalImages: total,
		Status:      domain.AssignmentStatusAssigned,
		AssignedBy:  assignedBy,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
