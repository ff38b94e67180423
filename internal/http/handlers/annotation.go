package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

type AnnotationHandler struct {
	annotationService   services.AnnotationService
	autoAnnotateService services.AutoAnnotateService
}

func NewAnnotationHandler(annotationService services.AnnotationService, autoAnnotateService services.AutoAnnotateService) *AnnotationHandler {
	return &AnnotationHandler{
		annotationService:   annotationService,
		autoAnnotateService: autoAnnotateService,
	}
}

type annotationWriteRequest struct {
	Objects   []domain.AnnotationObject `json:"objects"`
	TimeSpent int                       `json:"time_spent"`
}

// Save is the completion-grade write; it finalizes the image for this pass.
func (h *AnnotationHandler) Save(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}
	var req annotationWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ann, err := h.annotationService.Save(requestDBC(c), projectID, imageID, userID, isAdmin, req.Objects, req.TimeSpent, false)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, ann)
}

// Autosave checkpoints work in progress without finalizing anything.
func (h *AnnotationHandler) Autosave(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}
	var req annotationWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ann, err := h.annotationService.Autosave(requestDBC(c), projectID, imageID, userID, isAdmin, req.Objects, req.TimeSpent, false)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, ann)
}

func (h *AnnotationHandler) Get(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}
	ann, err := h.annotationService.Get(requestDBC(c), projectID, imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if ann == nil {
		response.RespondOK(c, gin.H{"annotation": nil})
		return
	}
	response.RespondOK(c, ann)
}

func (h *AnnotationHandler) AutoAnnotate(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}
	ann, err := h.autoAnnotateService.AutoAnnotate(requestDBC(c), projectID, imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, ann)
}
