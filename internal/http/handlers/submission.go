package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

type SubmissionHandler struct {
	submissionService services.SubmissionService
}

func NewSubmissionHandler(submissionService services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) Submit(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		AssignmentID uuid.UUID `json:"assignment_id"`
		Message      string    `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sub, err := h.submissionService.SubmitForReview(requestDBC(c), projectID, userID, req.AssignmentID, req.Message)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, sub)
}

func (h *SubmissionHandler) Review(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status        domain.SubmissionStatus     `json:"status"`
		Feedback      string                      `json:"feedback"`
		FlaggedImages []domain.FlaggedImage       `json:"flagged_images"`
		ImageFeedback []domain.ImageFeedbackEntry `json:"image_feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sub, err := h.submissionService.Review(requestDBC(c), submissionID, userID, isAdmin, services.ReviewDecision{
		Status:        req.Status,
		Feedback:      req.Feedback,
		FlaggedImages: req.FlaggedImages,
		ImageFeedback: req.ImageFeedback,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, sub)
}

func (h *SubmissionHandler) UpdateImageFeedback(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ImageFeedback []domain.ImageFeedbackEntry `json:"image_feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sub, err := h.submissionService.UpdateImageFeedback(requestDBC(c), submissionID, userID, isAdmin, req.ImageFeedback)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, sub)
}

func (h *SubmissionHandler) Get(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	submissionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.submissionService.GetByID(requestDBC(c), submissionID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, sub)
}

func (h *SubmissionHandler) ListByProject(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	subs, err := h.submissionService.ListByProject(requestDBC(c), projectID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": subs})
}

func (h *SubmissionHandler) UserStatus(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	status, err := h.submissionService.GetUserSubmissionStatus(requestDBC(c), projectID, userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}
