package services

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
)

const uploadConcurrency = 4

// UploadedImage is one file of an upload batch, already read off the wire.
type UploadedImage struct {
	Filename string
	Content  []byte
}

// UploadFailure names a file skipped by the partial-success upload batch.
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ImagePatch lists the sparse-updatable image fields. Nil fields are left
// untouched; the Clear* flags null out their optional columns.
type ImagePatch struct {
	Status           *domain.ImageStatus
	AnnotationStatus *domain.AnnotationStatus
	ReviewStatus     *domain.ReviewStatus
	AssignedTo       *uuid.UUID
	AnnotatedBy      *uuid.UUID
	AnnotatedAt      *time.Time
	ReviewedBy       *uuid.UUID
	ReviewedAt       *time.Time
	ReviewFeedback   *string
	AutoAnnotated    *bool
	TimeSpent        *int

	ClearAssignedTo        bool
	ClearCurrentSubmission bool
}

type ImageService interface {
	Upload(dbc dbctx.Context, projectID, uploaderID uuid.UUID, isAdmin bool, files []UploadedImage) ([]*domain.ProjectImage, []UploadFailure, error)
	Delete(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) (bool, error)
	UpdateStatus(dbc dbctx.Context, imageID uuid.UUID, patch ImagePatch) error
	GetByID(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) (*domain.ProjectImage, error)
	ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.ProjectImage, error)
	ListAssignedTo(dbc dbctx.Context, projectID, userID uuid.UUID) ([]*domain.ProjectImage, error)
	SignedURL(dbc dbctx.Context, imageID uuid.UUID, ttl time.Duration) (string, error)
}

type imageService struct {
	log            *logger.Logger
	bucket         gcp.BucketService
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	annotationRepo repos.AnnotationRepo
	statsService   StatsService
}

func NewImageService(
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	annotationRepo repos.AnnotationRepo,
	statsService StatsService,
) ImageService {
	return &imageService{
		log:            baseLog.With("service", "ImageService"),
		bucket:         bucket,
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		annotationRepo: annotationRepo,
		statsService:   statsService,
	}
}

func imageStorageKey(projectID, imageID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("projects/%s/images/%s%s", projectID, imageID, ext)
}

func labelStorageKey(projectID, imageID uuid.UUID) string {
	return fmt.Sprintf("projects/%s/labels/%s.txt", projectID, imageID)
}

// Upload persists each file to object storage, creates its document and
// recomputes project stats once per successful file. A failing file is logged
// and skipped; the rest of the batch still lands.
func (s *imageService) Upload(dbc dbctx.Context, projectID, uploaderID uuid.UUID, isAdmin bool, files []UploadedImage) ([]*domain.ProjectImage, []UploadFailure, error) {
	if len(files) == 0 {
		return nil, nil, apierr.Validation("no_files", fmt.Errorf("upload requires at least one file"))
	}
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, uploaderID, isAdmin); err != nil {
		return nil, nil, err
	}

	type stored struct {
		index  int
		id     uuid.UUID
		key    string
		width  int
		height int
	}

	var mu sync.Mutex
	storedFiles := make([]stored, 0, len(files))
	failures := make([]UploadFailure, 0)

	g := errgroup.Group{}
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if f.Filename == "" || len(f.Content) == 0 {
				mu.Lock()
				failures = append(failures, UploadFailure{Filename: f.Filename, Reason: "empty file"})
				mu.Unlock()
				return nil
			}
			width, height := 0, 0
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Content)); err == nil {
				width, height = cfg.Width, cfg.Height
			}
			imageID := uuid.New()
			key := imageStorageKey(projectID, imageID, f.Filename)
			if err := s.bucket.UploadFile(dbc, key, bytes.NewReader(f.Content)); err != nil {
				s.log.Error("image upload failed", "project_id", projectID, "filename", f.Filename, "error", err)
				mu.Lock()
				failures = append(failures, UploadFailure{Filename: f.Filename, Reason: "storage write failed"})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			storedFiles = append(storedFiles, stored{index: i, id: imageID, key: key, width: width, height: height})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Document writes run sequentially so stats land once per file in a
	// stable order.
	created := make([]*domain.ProjectImage, 0, len(storedFiles))
	for _, sf := range storedFiles {
		now := time.Now()
		img := &domain.ProjectImage{
			ID:               sf.id,
			ProjectID:        projectID,
			Filename:         files[sf.index].Filename,
			StorageKey:       sf.key,
			Width:            sf.width,
			Height:           sf.height,
			Status:           domain.ImageStatusUploaded,
			AnnotationStatus: domain.AnnotationStatusUnannotated,
			ReviewStatus:     domain.ReviewStatusNotReviewed,
			UploadedBy:       uploaderID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := s.imageRepo.Create(dbc, []*domain.ProjectImage{img}); err != nil {
			s.log.Error("image document create failed", "project_id", projectID, "filename", img.Filename, "error", err)
			failures = append(failures, UploadFailure{Filename: img.Filename, Reason: "document create failed"})
			continue
		}
		if _, err := s.statsService.RecomputeProject(dbc, projectID); err != nil {
			s.log.Error("stats recompute failed after upload", "project_id", projectID, "error", err)
		}
		created = append(created, img)
	}
	return created, failures, nil
}

// Delete removes the stored object, the label mirror when present, the
// annotation documents and the image document, then recomputes stats.
// Returns false with no side effects when the image does not exist.
func (s *imageService) Delete(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) (bool, error) {
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return false, fmt.Errorf("load image: %w", err)
	}
	if img == nil {
		return false, nil
	}
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, img.ProjectID, actorID, isAdmin); err != nil {
		return false, err
	}

	if err := s.bucket.DeleteFile(dbc, img.StorageKey); err != nil {
		s.log.Warn("stored object delete failed", "image_id", imageID, "error", err)
	}
	labelKey := labelStorageKey(img.ProjectID, img.ID)
	if exists, err := s.bucket.Exists(dbc.Ctx, labelKey); err == nil && exists {
		if err := s.bucket.DeleteFile(dbc, labelKey); err != nil {
			s.log.Warn("label mirror delete failed", "image_id", imageID, "error", err)
		}
	}

	if err := s.annotationRepo.FullDeleteByImageID(dbc, imageID); err != nil {
		return false, fmt.Errorf("delete annotations: %w", err)
	}
	if err := s.imageRepo.FullDeleteByID(dbc, imageID); err != nil {
		return false, fmt.Errorf("delete image: %w", err)
	}
	if _, err := s.statsService.RecomputeProject(dbc, img.ProjectID); err != nil {
		s.log.Error("stats recompute failed after delete", "project_id", img.ProjectID, "error", err)
	}
	return true, nil
}

// UpdateStatus applies a sparse update and unconditionally recomputes stats.
func (s *imageService) UpdateStatus(dbc dbctx.Context, imageID uuid.UUID, patch ImagePatch) error {
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	if img == nil {
		return apierr.NotFound("image_not_found", fmt.Errorf("image %s not found", imageID))
	}

	fields := patch.fields()
	if len(fields) > 0 {
		if err := s.imageRepo.UpdateFields(dbc, imageID, fields); err != nil {
			return fmt.Errorf("update image: %w", err)
		}
	}
	if _, err := s.statsService.RecomputeProject(dbc, img.ProjectID); err != nil {
		s.log.Error("stats recompute failed after status update", "project_id", img.ProjectID, "error", err)
	}
	return nil
}

func (p ImagePatch) fields() map[string]any {
	fields := map[string]any{}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.AnnotationStatus != nil {
		fields["annotation_status"] = *p.AnnotationStatus
	}
	if p.ReviewStatus != nil {
		fields["review_status"] = *p.ReviewStatus
	}
	if p.AssignedTo != nil {
		fields["assigned_to"] = *p.AssignedTo
	}
	if p.AnnotatedBy != nil {
		fields["annotated_by"] = *p.AnnotatedBy
	}
	if p.AnnotatedAt != nil {
		fields["annotated_at"] = *p.AnnotatedAt
	}
	if p.ReviewedBy != nil {
		fields["reviewed_by"] = *p.ReviewedBy
	}
	if p.ReviewedAt != nil {
		fields["reviewed_at"] = *p.ReviewedAt
	}
	if p.ReviewFeedback != nil {
		fields["review_feedback"] = *p.ReviewFeedback
	}
	if p.AutoAnnotated != nil {
		fields["auto_annotated"] = *p.AutoAnnotated
	}
	if p.TimeSpent != nil {
		fields["time_spent"] = *p.TimeSpent
	}
	if p.ClearAssignedTo {
		fields["assigned_to"] = nil
		fields["assignment_id"] = nil
	}
	if p.ClearCurrentSubmission {
		fields["current_submission_id"] = nil
	}
	return fields
}

func (s *imageService) GetByID(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) (*domain.ProjectImage, error) {
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if img == nil {
		return nil, apierr.NotFound("image_not_found", fmt.Errorf("image %s not found", imageID))
	}
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, img.ProjectID, actorID, isAdmin); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *imageService) ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.ProjectImage, error) {
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, isAdmin); err != nil {
		return nil, err
	}
	return s.imageRepo.GetByProjectID(dbc, projectID)
}

// ListAssignedTo returns the caller's assigned images in a project, the
// annotator workbench view.
func (s *imageService) ListAssignedTo(dbc dbctx.Context, projectID, userID uuid.UUID) ([]*domain.ProjectImage, error) {
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, userID, false); err != nil {
		return nil, err
	}
	return s.imageRepo.GetByProjectAndAssignee(dbc, projectID, userID)
}

func (s *imageService) SignedURL(dbc dbctx.Context, imageID uuid.UUID, ttl time.Duration) (string, error) {
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	if img == nil {
		return "", apierr.NotFound("image_not_found", fmt.Errorf("image %s not found", imageID))
	}
	u, err := s.bucket.SignedURL(img.StorageKey, ttl)
	if err != nil {
		return "", apierr.Storage("signed_url_failed", err)
	}
	return u, nil
}
