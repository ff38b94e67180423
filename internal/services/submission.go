package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

// ReviewDecision is a reviewer verdict on a submission. Status must be
// APPROVED or REJECTED; FlaggedImages replaces the stored list wholesale,
// ImageFeedback merges into it by image id.
type ReviewDecision struct {
	Status        domain.SubmissionStatus
	Feedback      string
	FlaggedImages []domain.FlaggedImage
	ImageFeedback []domain.ImageFeedbackEntry
}

// UserSubmissionStatus is the per-user read model the annotator UI polls.
type UserSubmissionStatus struct {
	CanSubmit     bool `json:"can_submit"`
	TotalAssigned int  `json:"total_assigned"`
	Completed     int  `json:"completed"`
	Flagged       int  `json:"flagged"`
	Approved      int  `json:"approved"`
	PendingReview bool `json:"pending_review"`
	Progress      int  `json:"progress"`
}

type SubmissionService interface {
	SubmitForReview(dbc dbctx.Context, projectID, userID, assignmentID uuid.UUID, message string) (*domain.Submission, error)
	Review(dbc dbctx.Context, submissionID, reviewerID uuid.UUID, isAdmin bool, decision ReviewDecision) (*domain.Submission, error)
	// UpdateImageFeedback merges per-image commentary without finalizing a
	// verdict: status, flags and review history stay untouched.
	UpdateImageFeedback(dbc dbctx.Context, submissionID, reviewerID uuid.UUID, isAdmin bool, entries []domain.ImageFeedbackEntry) (*domain.Submission, error)
	GetByID(dbc dbctx.Context, submissionID, actorID uuid.UUID, isAdmin bool) (*domain.Submission, error)
	ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.Submission, error)
	GetUserSubmissionStatus(dbc dbctx.Context, projectID, userID uuid.UUID) (*UserSubmissionStatus, error)
}

type submissionService struct {
	log            *logger.Logger
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	assignmentRepo repos.AssignmentRepo
	submissionRepo repos.SubmissionRepo
	statsService   StatsService
}

func NewSubmissionService(
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	assignmentRepo repos.AssignmentRepo,
	submissionRepo repos.SubmissionRepo,
	statsService StatsService,
) SubmissionService {
	return &submissionService{
		log:            baseLog.With("service", "SubmissionService"),
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		statsService:   statsService,
	}
}

func (s *submissionService) SubmitForReview(dbc dbctx.Context, projectID, userID, assignmentID uuid.UUID, message string) (*domain.Submission, error) {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, userID, false)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.ProjectStatusCompleted {
		return nil, apierr.Conflict("project_completed", fmt.Errorf("project %s is completed and read-only", projectID))
	}

	assignment, err := s.assignmentRepo.GetByID(dbc, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if assignment == nil || assignment.ProjectID != projectID {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", assignmentID))
	}
	if assignment.UserID != userID {
		return nil, apierr.Validation("assignment_not_owned", fmt.Errorf("assignment %s does not belong to user", assignmentID))
	}
	// The live check must come first: an assignment with a live submission
	// sits in SUBMITTED/UNDER_REVIEW, which the eligibility gate also rejects,
	// and the pending submission is the more specific conflict.
	if live, err := s.submissionRepo.GetLiveByAssignmentID(dbc, assignmentID); err != nil {
		return nil, fmt.Errorf("check live submission: %w", err)
	} else if live != nil {
		return nil, apierr.Conflict("submission_pending", fmt.Errorf("assignment %s already has a submission under review", assignmentID))
	}
	if !assignment.Status.SubmissionEligible() {
		return nil, apierr.Conflict("assignment_not_submittable", fmt.Errorf("assignment status %s does not permit submission", assignment.Status))
	}

	images, err := s.imageRepo.GetByAssignmentID(dbc, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assigned images: %w", err)
	}
	completed := 0
	for _, img := range images {
		if img.AnnotationStatus == domain.AnnotationStatusCompleted {
			completed++
		}
	}
	if completed == 0 {
		return nil, apierr.Validation("no_completed_images", fmt.Errorf("assignment %s has no completed images to submit", assignmentID))
	}

	imageIDs := make([]uuid.UUID, len(images))
	for i, img := range images {
		imageIDs[i] = img.ID
	}

	now := time.Now()
	sub := &domain.Submission{
		ID:           uuid.New(),
		ProjectID:    projectID,
		UserID:       userID,
		AssignmentID: assignmentID,
		Status:       domain.SubmissionStatusSubmitted,
		Message:      message,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := sub.SetImageIDList(imageIDs); err != nil {
		return nil, fmt.Errorf("encode image ids: %w", err)
	}
	if _, err := s.submissionRepo.Create(dbc, []*domain.Submission{sub}); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	if err := s.imageRepo.UpdateFieldsBatch(dbc, imageIDs, map[string]any{
		"status":                domain.ImageStatusUnderReview,
		"current_submission_id": sub.ID,
	}); err != nil {
		return nil, fmt.Errorf("stamp submitted images: %w", err)
	}
	if err := s.assignmentRepo.UpdateFields(dbc, assignmentID, map[string]any{
		"status": domain.AssignmentStatusSubmitted,
	}); err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	if _, err := s.statsService.RecomputeProject(dbc, projectID); err != nil {
		s.log.Error("stats recompute failed after submit", "project_id", projectID, "error", err)
	}

	s.log.Info("submission created", "submission_id", sub.ID, "project_id", projectID, "image_count", len(imageIDs))
	return sub, nil
}

func (s *submissionService) Review(dbc dbctx.Context, submissionID, reviewerID uuid.UUID, isAdmin bool, decision ReviewDecision) (*domain.Submission, error) {
	if decision.Status != domain.SubmissionStatusApproved && decision.Status != domain.SubmissionStatusRejected {
		return nil, apierr.Validation("invalid_review_status", fmt.Errorf("review status must be APPROVED or REJECTED, got %s", decision.Status))
	}

	sub, err := s.resolveSubmission(dbc, submissionID, reviewerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, apierr.Forbidden("reviewer_role_required", fmt.Errorf("user %s may not review submissions", reviewerID))
	}

	imageIDs, err := sub.ImageIDList()
	if err != nil {
		return nil, fmt.Errorf("decode image ids: %w", err)
	}
	covered := make(map[uuid.UUID]bool, len(imageIDs))
	for _, id := range imageIDs {
		covered[id] = true
	}
	for _, f := range decision.FlaggedImages {
		if !covered[f.ImageID] {
			return nil, apierr.Validation("flagged_image_not_in_submission", fmt.Errorf("image %s is not covered by submission %s", f.ImageID, submissionID))
		}
	}
	for _, e := range decision.ImageFeedback {
		if !covered[e.ImageID] {
			return nil, apierr.Validation("feedback_image_not_in_submission", fmt.Errorf("image %s is not covered by submission %s", e.ImageID, submissionID))
		}
	}

	history, err := sub.ReviewHistoryList()
	if err != nil {
		return nil, fmt.Errorf("decode review history: %w", err)
	}
	if sub.ReviewedAt != nil && sub.ReviewedBy != nil {
		flagged, err := sub.FlaggedImageList()
		if err != nil {
			return nil, fmt.Errorf("decode flagged images: %w", err)
		}
		history = append(history, domain.ReviewRecord{
			ReviewedBy:   *sub.ReviewedBy,
			ReviewedAt:   *sub.ReviewedAt,
			Status:       sub.Status,
			Feedback:     sub.Feedback,
			FlaggedCount: len(flagged),
		})
	}

	merged, err := mergeImageFeedback(sub, decision.ImageFeedback)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	flaggedJSON, err := domain.MarshalJSONColumn(decision.FlaggedImages)
	if err != nil {
		return nil, fmt.Errorf("encode flagged images: %w", err)
	}
	feedbackJSON, err := domain.MarshalJSONColumn(merged)
	if err != nil {
		return nil, fmt.Errorf("encode image feedback: %w", err)
	}
	historyJSON, err := domain.MarshalJSONColumn(history)
	if err != nil {
		return nil, fmt.Errorf("encode review history: %w", err)
	}

	rows, err := s.submissionRepo.UpdateFieldsWithVersion(dbc, submissionID, sub.ReviewVersion, map[string]any{
		"status":         decision.Status,
		"feedback":       decision.Feedback,
		"flagged_images": flaggedJSON,
		"image_feedback": feedbackJSON,
		"review_history": historyJSON,
		"reviewed_by":    reviewerID,
		"reviewed_at":    now,
	})
	if err != nil {
		return nil, fmt.Errorf("write review decision: %w", err)
	}
	if rows == 0 {
		return nil, apierr.Conflict("review_conflict", fmt.Errorf("submission %s was reviewed concurrently", submissionID))
	}

	if err := s.applyReviewToImages(dbc, imageIDs, decision, reviewerID, now); err != nil {
		return nil, err
	}

	assignmentStatus := domain.AssignmentStatusCompleted
	if decision.Status == domain.SubmissionStatusRejected {
		assignmentStatus = domain.AssignmentStatusNeedsRevision
	}
	if err := s.assignmentRepo.UpdateFields(dbc, sub.AssignmentID, map[string]any{
		"status": assignmentStatus,
	}); err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	if _, err := s.statsService.RecomputeProject(dbc, sub.ProjectID); err != nil {
		s.log.Error("stats recompute failed after review", "project_id", sub.ProjectID, "error", err)
	}

	s.log.Info("submission reviewed",
		"submission_id", submissionID,
		"status", decision.Status,
		"flagged_count", len(decision.FlaggedImages),
	)
	return s.submissionRepo.GetByID(dbc, submissionID)
}

// applyReviewToImages writes the per-image review outcome. Flagged images are
// marked FLAGGED with their reason; on APPROVED the remainder is approved and
// unlinked from the submission; on REJECTED non-flagged images keep their
// current review state.
func (s *submissionService) applyReviewToImages(dbc dbctx.Context, imageIDs []uuid.UUID, decision ReviewDecision, reviewerID uuid.UUID, now time.Time) error {
	flaggedReason := make(map[uuid.UUID]string, len(decision.FlaggedImages))
	for _, f := range decision.FlaggedImages {
		flaggedReason[f.ImageID] = f.Reason
	}

	for _, id := range imageIDs {
		if reason, isFlagged := flaggedReason[id]; isFlagged {
			if err := s.imageRepo.UpdateFields(dbc, id, map[string]any{
				"review_status":   domain.ReviewStatusFlagged,
				"review_feedback": reason,
				"reviewed_by":     reviewerID,
				"reviewed_at":     now,
			}); err != nil {
				return fmt.Errorf("flag image %s: %w", id, err)
			}
			continue
		}
		if decision.Status == domain.SubmissionStatusApproved {
			if err := s.imageRepo.UpdateFields(dbc, id, map[string]any{
				"review_status":         domain.ReviewStatusApproved,
				"reviewed_by":           reviewerID,
				"reviewed_at":           now,
				"current_submission_id": nil,
			}); err != nil {
				return fmt.Errorf("approve image %s: %w", id, err)
			}
		}
	}
	return nil
}

func (s *submissionService) UpdateImageFeedback(dbc dbctx.Context, submissionID, reviewerID uuid.UUID, isAdmin bool, entries []domain.ImageFeedbackEntry) (*domain.Submission, error) {
	sub, err := s.resolveSubmission(dbc, submissionID, reviewerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, apierr.Forbidden("reviewer_role_required", fmt.Errorf("user %s may not review submissions", reviewerID))
	}

	imageIDs, err := sub.ImageIDList()
	if err != nil {
		return nil, fmt.Errorf("decode image ids: %w", err)
	}
	covered := make(map[uuid.UUID]bool, len(imageIDs))
	for _, id := range imageIDs {
		covered[id] = true
	}
	for _, e := range entries {
		if !covered[e.ImageID] {
			return nil, apierr.Validation("feedback_image_not_in_submission", fmt.Errorf("image %s is not covered by submission %s", e.ImageID, submissionID))
		}
	}

	merged, err := mergeImageFeedback(sub, entries)
	if err != nil {
		return nil, err
	}
	feedbackJSON, err := domain.MarshalJSONColumn(merged)
	if err != nil {
		return nil, fmt.Errorf("encode image feedback: %w", err)
	}
	if err := s.submissionRepo.UpdateFields(dbc, submissionID, map[string]any{
		"image_feedback": feedbackJSON,
	}); err != nil {
		return nil, fmt.Errorf("update image feedback: %w", err)
	}
	return s.submissionRepo.GetByID(dbc, submissionID)
}

// mergeImageFeedback is additive by image id: a new entry replaces the stored
// entry for the same image and appends otherwise.
func mergeImageFeedback(sub *domain.Submission, entries []domain.ImageFeedbackEntry) ([]domain.ImageFeedbackEntry, error) {
	existing, err := sub.ImageFeedbackList()
	if err != nil {
		return nil, fmt.Errorf("decode image feedback: %w", err)
	}
	merged := make([]domain.ImageFeedbackEntry, 0, len(existing)+len(entries))
	byID := make(map[uuid.UUID]int, len(existing))
	for _, e := range existing {
		byID[e.ImageID] = len(merged)
		merged = append(merged, e)
	}
	for _, e := range entries {
		if i, ok := byID[e.ImageID]; ok {
			merged[i] = e
			continue
		}
		byID[e.ImageID] = len(merged)
		merged = append(merged, e)
	}
	return merged, nil
}

func (s *submissionService) GetByID(dbc dbctx.Context, submissionID, actorID uuid.UUID, isAdmin bool) (*domain.Submission, error) {
	return s.resolveSubmission(dbc, submissionID, actorID, isAdmin)
}

func (s *submissionService) ListByProject(dbc dbctx.Context, projectID, actorID uuid.UUID, isAdmin bool) ([]*domain.Submission, error) {
	if _, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, actorID, isAdmin); err != nil {
		return nil, err
	}
	if isAdmin {
		return s.submissionRepo.GetByProjectID(dbc, projectID)
	}
	return s.submissionRepo.GetByUserAndProject(dbc, actorID, projectID)
}

func (s *submissionService) GetUserSubmissionStatus(dbc dbctx.Context, projectID, userID uuid.UUID) (*UserSubmissionStatus, error) {
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, projectID, userID, false)
	if err != nil {
		return nil, err
	}

	status := &UserSubmissionStatus{}

	assignment, err := s.assignmentRepo.GetActiveByProjectAndUser(dbc, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if assignment == nil {
		return status, nil
	}

	images, err := s.imageRepo.GetByAssignmentID(dbc, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("load assigned images: %w", err)
	}
	status.TotalAssigned = len(images)
	for _, img := range images {
		if img.AnnotationStatus == domain.AnnotationStatusCompleted {
			status.Completed++
		}
		switch img.ReviewStatus {
		case domain.ReviewStatusFlagged:
			status.Flagged++
		case domain.ReviewStatusApproved:
			status.Approved++
		}
	}
	if status.TotalAssigned > 0 {
		status.Progress = completionPercentage(status.Completed, status.TotalAssigned)
	}

	live, err := s.submissionRepo.GetLiveByAssignmentID(dbc, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("check live submission: %w", err)
	}
	status.PendingReview = live != nil

	// Completed projects are read-only to the submission pipeline.
	status.CanSubmit = project.Status != domain.ProjectStatusCompleted &&
		assignment.Status.SubmissionEligible() &&
		live == nil &&
		status.Completed > 0
	return status, nil
}

func (s *submissionService) resolveSubmission(dbc dbctx.Context, submissionID, actorID uuid.UUID, isAdmin bool) (*domain.Submission, error) {
	sub, err := s.submissionRepo.GetByID(dbc, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return nil, apierr.NotFound("submission_not_found", fmt.Errorf("submission %s not found", submissionID))
	}
	if !isAdmin && sub.UserID != actorID {
		return nil, apierr.NotFound("submission_not_found", fmt.Errorf("submission %s not found", submissionID))
	}
	return sub, nil
}
