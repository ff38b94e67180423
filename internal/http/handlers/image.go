package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

const signedURLTTL = 15 * time.Minute

type ImageHandler struct {
	log            *logger.Logger
	imageService   services.ImageService
	previewService services.PreviewService
}

func NewImageHandler(log *logger.Logger, imageService services.ImageService, previewService services.PreviewService) *ImageHandler {
	return &ImageHandler{
		log:            log.With("handler", "ImageHandler"),
		imageService:   imageService,
		previewService: previewService,
	}
}

// Upload accepts a multipart batch under the "files" field. Partial success:
// the response reports created documents and per-file failures side by side.
func (h *ImageHandler) Upload(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	fileHeaders := form.File["files"]
	files := make([]services.UploadedImage, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		r, err := fh.Open()
		if err != nil {
			h.log.Error("cannot open uploaded file", "filename", fh.Filename, "error", err)
			continue
		}
		content, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			h.log.Error("cannot read uploaded file", "filename", fh.Filename, "error", err)
			continue
		}
		files = append(files, services.UploadedImage{Filename: fh.Filename, Content: content})
	}

	created, failed, err := h.imageService.Upload(requestDBC(c), projectID, userID, isAdmin, files)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"images": created,
		"failed": failed,
	})
}

func (h *ImageHandler) ListByProject(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var images []*domain.ProjectImage
	var err error
	if c.Query("mine") == "true" {
		images, err = h.imageService.ListAssignedTo(requestDBC(c), projectID, userID)
	} else {
		images, err = h.imageService.ListByProject(requestDBC(c), projectID, userID, isAdmin)
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"images": images})
}

func (h *ImageHandler) Get(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	img, err := h.imageService.GetByID(requestDBC(c), imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, img)
}

func (h *ImageHandler) Delete(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.imageService.Delete(requestDBC(c), imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}

type imageStatusRequest struct {
	Status           *domain.ImageStatus      `json:"status"`
	AnnotationStatus *domain.AnnotationStatus `json:"annotation_status"`
	ReviewStatus     *domain.ReviewStatus     `json:"review_status"`
	ReviewFeedback   *string                  `json:"review_feedback"`
}

// UpdateStatus applies a sparse status patch. Admin-only; the annotation and
// review flows maintain these fields themselves, this is the manual override.
func (h *ImageHandler) UpdateStatus(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	if !isAdmin {
		response.RespondError(c, http.StatusForbidden, "admin_role_required", fmt.Errorf("user %s is not an admin", userID))
		return
	}
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req imageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if _, err := h.imageService.GetByID(requestDBC(c), imageID, userID, isAdmin); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	patch := services.ImagePatch{
		Status:           req.Status,
		AnnotationStatus: req.AnnotationStatus,
		ReviewStatus:     req.ReviewStatus,
		ReviewFeedback:   req.ReviewFeedback,
	}
	if err := h.imageService.UpdateStatus(requestDBC(c), imageID, patch); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	img, err := h.imageService.GetByID(requestDBC(c), imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, img)
}

func (h *ImageHandler) SignedURL(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	// Membership gate before handing out a URL.
	if _, err := h.imageService.GetByID(requestDBC(c), imageID, userID, isAdmin); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	u, err := h.imageService.SignedURL(requestDBC(c), imageID, signedURLTTL)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": u, "expires_in": int(signedURLTTL.Seconds())})
}

func (h *ImageHandler) Preview(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	png, err := h.previewService.Render(requestDBC(c), imageID, userID, isAdmin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
