package services

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
	"github.com/yungbote/labelbridge-backend/internal/platform/vision"
)

// AutoAnnotateService runs object localization on the stored GCS object and
// writes the result through the autosave path: the annotator still has to
// review and complete the image, so pre-annotation never flips it to
// COMPLETED or touches review state.
type AutoAnnotateService interface {
	AutoAnnotate(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool) (*domain.Annotation, error)
}

type autoAnnotateService struct {
	log               *logger.Logger
	bucket            gcp.BucketService
	localizer         vision.Localizer
	projectRepo       repos.ProjectRepo
	memberRepo        repos.ProjectMemberRepo
	imageRepo         repos.ImageRepo
	annotationService AnnotationService
}

func NewAutoAnnotateService(
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	localizer vision.Localizer,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	annotationService AnnotationService,
) AutoAnnotateService {
	return &autoAnnotateService{
		log:               baseLog.With("service", "AutoAnnotateService"),
		bucket:            bucket,
		localizer:         localizer,
		projectRepo:       projectRepo,
		memberRepo:        memberRepo,
		imageRepo:         imageRepo,
		annotationService: annotationService,
	}
}

func (s *autoAnnotateService) AutoAnnotate(dbc dbctx.Context, projectID, imageID, userID uuid.UUID, isAdmin bool) (*domain.Annotation, error) {
	// The localizer is optional infrastructure; main wires nil when the
	// Vision client could not be built.
	if s.localizer == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "auto_annotation_unavailable", fmt.Errorf("no object localizer configured"))
	}
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if img == nil || img.ProjectID != projectID {
		return nil, apierr.NotFound("image_not_found", fmt.Errorf("image %s not found in project %s", imageID, projectID))
	}
	classes, err := project.ClassList()
	if err != nil {
		return nil, fmt.Errorf("decode project classes: %w", err)
	}
	if len(classes) == 0 {
		return nil, apierr.Validation("project_has_no_classes", fmt.Errorf("project %s has no classes to match against", projectID))
	}

	boxes, err := s.localizer.LocalizeObjects(dbc.Ctx, s.bucket.ObjectURI(img.StorageKey))
	if err != nil {
		return nil, apierr.Storage("object_localization_failed", err)
	}

	objects := make([]domain.AnnotationObject, 0, len(boxes))
	for _, b := range boxes {
		cls := matchClassByName(classes, b.Name)
		objects = append(objects, domain.AnnotationObject{
			ClassID:   cls.ID,
			ClassName: cls.Name,
			X:         b.X,
			Y:         b.Y,
			Width:     b.Width,
			Height:    b.Height,
		})
	}
	s.log.Info("auto-annotation complete", "image_id", imageID, "box_count", len(objects))

	return s.annotationService.Autosave(dbc, projectID, imageID, userID, isAdmin, objects, 0, true)
}

// matchClassByName matches a detected label to a project class by
// case-insensitive name; an unmatched label falls back to the first class,
// mirroring the index-0 default in the label mirror.
func matchClassByName(classes []domain.ProjectClass, name string) domain.ProjectClass {
	for _, c := range classes {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return classes[0]
}
