package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

type ProjectHandler struct {
	projectService services.ProjectService
	statsService   services.StatsService
}

func NewProjectHandler(projectService services.ProjectService, statsService services.StatsService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, statsService: statsService}
}

func (ph *ProjectHandler) Create(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Name               string                `json:"name"`
		Description        string                `json:"description"`
		Classes            []domain.ProjectClass `json:"classes"`
		AllowCustomClasses bool                  `json:"allow_custom_classes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	project, err := ph.projectService.Create(requestDBC(c), userID, services.ProjectInput{
		Name:               req.Name,
		Description:        req.Description,
		Classes:            req.Classes,
		AllowCustomClasses: req.AllowCustomClasses,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, project)
}

func (ph *ProjectHandler) List(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projects, err := ph.projectService.ListForUser(requestDBC(c), userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

func (ph *ProjectHandler) Get(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	project, err := ph.projectService.GetByID(requestDBC(c), projectID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, project)
}

func (ph *ProjectHandler) AddMembers(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	members, err := ph.projectService.AddMembers(requestDBC(c), projectID, userID, req.UserIDs)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}

func (ph *ProjectHandler) MarkComplete(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	project, err := ph.projectService.MarkComplete(requestDBC(c), projectID, userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, project)
}

func (ph *ProjectHandler) Delete(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ph.projectService.Delete(requestDBC(c), projectID, userID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ph *ProjectHandler) GetStats(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	// Membership gate before the cached read.
	if _, err := ph.projectService.GetByID(requestDBC(c), projectID, userID, isAdmin); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	stats, err := ph.statsService.GetProjectStats(c.Request.Context(), projectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, stats)
}
