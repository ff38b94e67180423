package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/pkg/yolo"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
)

type AnnotationService interface {
	// Save is a completion-grade write: it replaces the object list, marks
	// the image annotated, clears a prior FLAGGED verdict and rebuilds the
	// YOLO mirror.
	Save(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool, objects []domain.AnnotationObject, timeSpent int, autoAnnotated bool) (*domain.Annotation, error)
	// Autosave is a checkpoint: same object-list replacement and version
	// bump, but it never raises annotationStatus past IN_PROGRESS, never
	// clears review state and never touches the mirror.
	Autosave(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool, objects []domain.AnnotationObject, timeSpent int, autoAnnotated bool) (*domain.Annotation, error)
	Get(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool) (*domain.Annotation, error)
}

type annotationService struct {
	log            *logger.Logger
	bucket         gcp.BucketService
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	annotationRepo repos.AnnotationRepo
	assignmentRepo repos.AssignmentRepo
	statsService   StatsService
}

func NewAnnotationService(
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	annotationRepo repos.AnnotationRepo,
	assignmentRepo repos.AssignmentRepo,
	statsService StatsService,
) AnnotationService {
	return &annotationService{
		log:            baseLog.With("service", "AnnotationService"),
		bucket:         bucket,
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		annotationRepo: annotationRepo,
		assignmentRepo: assignmentRepo,
		statsService:   statsService,
	}
}

func (s *annotationService) Save(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool, objects []domain.AnnotationObject, timeSpent int, autoAnnotated bool) (*domain.Annotation, error) {
	project, img, err := s.resolveImage(dbc, projectID, imageID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	priorReviewStatus := img.ReviewStatus

	ann, err := s.upsertAnnotation(dbc, projectID, imageID, userID, objects, timeSpent, autoAnnotated)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fields := map[string]any{
		"status":            domain.ImageStatusAnnotated,
		"annotation_status": domain.AnnotationStatusCompleted,
		"annotated_by":      userID,
		"annotated_at":      now,
		"auto_annotated":    autoAnnotated,
		"time_spent":        img.TimeSpent + timeSpent,
	}
	// The resubmission unblocking rule: a corrected flagged image re-enters
	// the workflow with its review state reset in the same write.
	if priorReviewStatus == domain.ReviewStatusFlagged {
		fields["review_status"] = domain.ReviewStatusNotReviewed
		fields["review_feedback"] = ""
		fields["current_submission_id"] = nil
	}
	if err := s.imageRepo.UpdateFields(dbc, imageID, fields); err != nil {
		return nil, fmt.Errorf("update image after save: %w", err)
	}

	if img.AssignmentID != nil {
		if err := s.recountAssignment(dbc, *img.AssignmentID); err != nil {
			s.log.Error("assignment recount failed", "assignment_id", *img.AssignmentID, "error", err)
		}
	}
	if _, err := s.statsService.RecomputeProject(dbc, projectID); err != nil {
		s.log.Error("stats recompute failed after save", "project_id", projectID, "error", err)
	}

	if err := s.writeMirror(dbc, project, imageID, objects); err != nil {
		return nil, apierr.Storage("label_mirror_write_failed", err)
	}
	return ann, nil
}

func (s *annotationService) Autosave(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool, objects []domain.AnnotationObject, timeSpent int, autoAnnotated bool) (*domain.Annotation, error) {
	_, img, err := s.resolveImage(dbc, projectID, imageID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	ann, err := s.upsertAnnotation(dbc, projectID, imageID, userID, objects, timeSpent, autoAnnotated)
	if err != nil {
		return nil, err
	}

	if img.AnnotationStatus == domain.AnnotationStatusUnannotated {
		if err := s.imageRepo.UpdateFields(dbc, imageID, map[string]any{
			"annotation_status": domain.AnnotationStatusInProgress,
		}); err != nil {
			return nil, fmt.Errorf("update image after autosave: %w", err)
		}
	}
	if _, err := s.statsService.RecomputeProject(dbc, projectID); err != nil {
		s.log.Error("stats recompute failed after autosave", "project_id", projectID, "error", err)
	}
	return ann, nil
}

func (s *annotationService) Get(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool) (*domain.Annotation, error) {
	if _, _, err := s.resolveImage(dbc, projectID, imageID, userID, isAdmin); err != nil {
		return nil, err
	}
	// Review is author-agnostic: admins see the freshest annotation for the
	// image regardless of who wrote it.
	if isAdmin {
		return s.annotationRepo.GetLatestByImageID(dbc, imageID)
	}
	return s.annotationRepo.GetByImageAndUser(dbc, imageID, userID)
}

func (s *annotationService) resolveImage(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool) (*domain.Project, *domain.ProjectImage, error) {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, userID, isAdmin)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return nil, nil, fmt.Errorf("load image: %w", err)
	}
	if img == nil || img.ProjectID != projectID {
		return nil, nil, apierr.NotFound("image_not_found", fmt.Errorf("image %s not found in project %s", imageID, projectID))
	}
	return project, img, nil
}

func (s *annotationService) upsertAnnotation(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, objects []domain.AnnotationObject, timeSpent int, autoAnnotated bool) (*domain.Annotation, error) {
	existing, err := s.annotationRepo.GetByImageAndUser(dbc, imageID, userID)
	if err != nil {
		return nil, fmt.Errorf("load annotation: %w", err)
	}

	if existing == nil {
		now := time.Now()
		ann := &domain.Annotation{
			ID:            uuid.New(),
			ProjectID:     projectID,
			ImageID:       imageID,
			UserID:        userID,
			Version:       1,
			TimeSpent:     timeSpent,
			AutoAnnotated: autoAnnotated,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := ann.SetObjectList(objects); err != nil {
			return nil, fmt.Errorf("encode objects: %w", err)
		}
		if _, err := s.annotationRepo.Create(dbc, []*domain.Annotation{ann}); err != nil {
			return nil, fmt.Errorf("create annotation: %w", err)
		}
		return ann, nil
	}

	if err := existing.SetObjectList(objects); err != nil {
		return nil, fmt.Errorf("encode objects: %w", err)
	}
	existing.Version++
	existing.TimeSpent += timeSpent
	existing.AutoAnnotated = autoAnnotated
	existing.UpdatedAt = time.Now()
	if err := s.annotationRepo.UpdateFields(dbc, existing.ID, map[string]any{
		"objects":        existing.Objects,
		"version":        existing.Version,
		"time_spent":     existing.TimeSpent,
		"auto_annotated": existing.AutoAnnotated,
		"updated_at":     existing.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("update annotation: %w", err)
	}
	return existing, nil
}

// writeMirror rebuilds the per-image YOLO text object wholesale. A class id
// that no longer resolves against the project class list maps to index 0
// rather than dropping the box.
func (s *annotationService) writeMirror(dbc dbctx.Context, project *domain.Project, imageID uuid.UUID, objects []domain.AnnotationObject) error {
	classes, err := project.ClassList()
	if err != nil {
		return fmt.Errorf("decode project classes: %w", err)
	}
	indexByID := make(map[string]int, len(classes))
	for i, c := range classes {
		indexByID[c.ID] = i
	}

	lines := make([]yolo.Line, 0, len(objects))
	for _, o := range objects {
		idx, ok := indexByID[o.ClassID]
		if !ok {
			idx = 0
		}
		lines = append(lines, yolo.Line{
			ClassIndex: idx,
			X:          o.X,
			Y:          o.Y,
			Width:      o.Width,
			Height:     o.Height,
		})
	}

	key := labelStorageKey(project.ID, imageID)
	return s.bucket.UploadFile(dbc, key, strings.NewReader(yolo.Marshal(lines)))
}

func (s *annotationService) recountAssignment(dbc dbctx.Context, assignmentID uuid.UUID) error {
	assignment, err := s.assignmentRepo.GetByID(dbc, assignmentID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return nil
	}
	completed, err := s.imageRepo.CountCompletedByAssignment(dbc, assignmentID)
	if err != nil {
		return err
	}
	fields := map[string]any{"completed_images": int(completed)}
	if assignment.Status == domain.AssignmentStatusAssigned && completed > 0 {
		fields["status"] = domain.AssignmentStatusInProgress
	}
	return s.assignmentRepo.UpdateFields(dbc, assignmentID, fields)
}
