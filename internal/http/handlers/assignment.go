package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

type AssignmentHandler struct {
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID   uuid.UUID   `json:"user_id"`
		ImageIDs []uuid.UUID `json:"image_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	assignment, err := h.assignmentService.Assign(requestDBC(c), projectID, req.UserID, userID, req.ImageIDs)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, assignment)
}

func (h *AssignmentHandler) ListByProject(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	assignments, err := h.assignmentService.ListByProject(requestDBC(c), projectID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignments": assignments})
}

func (h *AssignmentHandler) ListMine(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	assignments, err := h.assignmentService.ListForUser(requestDBC(c), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignments": assignments})
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	assignmentID, ok := paramID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.GetByID(requestDBC(c), assignmentID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, assignment)
}
