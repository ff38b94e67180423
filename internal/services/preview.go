package services

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
)

const defaultPreviewLineWidth = 3.0

// PreviewService renders the latest annotation over an image as a PNG for the
// review UI: one stroked, class-colored rectangle per box with the class name
// above it.
type PreviewService interface {
	Render(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) ([]byte, error)
}

type previewService struct {
	log            *logger.Logger
	bucket         gcp.BucketService
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	imageRepo      repos.ImageRepo
	annotationRepo repos.AnnotationRepo
	fontFace       font.Face
}

// NewPreviewService loads the label font from PREVIEW_FONT_PATH when set;
// otherwise gg's built-in face is used.
func NewPreviewService(
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	imageRepo repos.ImageRepo,
	annotationRepo repos.AnnotationRepo,
) PreviewService {
	serviceLog := baseLog.With("service", "PreviewService")

	var face font.Face
	if fontPath := os.Getenv("PREVIEW_FONT_PATH"); fontPath != "" {
		loaded, err := loadFontFace(fontPath, 16)
		if err != nil {
			serviceLog.Warn("preview font load failed, using built-in face", "path", fontPath, "error", err)
		} else {
			face = loaded
		}
	}

	return &previewService{
		log:            serviceLog,
		bucket:         bucket,
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		imageRepo:      imageRepo,
		annotationRepo: annotationRepo,
		fontFace:       face,
	}
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

func (s *previewService) Render(dbc dbctx.Context, imageID, actorID uuid.UUID, isAdmin bool) ([]byte, error) {
	img, err := s.imageRepo.GetByID(dbc, imageID)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if img == nil {
		return nil, apierr.NotFound("image_not_found", fmt.Errorf("image %s not found", imageID))
	}
	project, err := resolveProjectForMember(dbc, s.projectRepo, s.memberRepo, img.ProjectID, actorID, isAdmin)
	if err != nil {
		return nil, err
	}

	rc, err := s.bucket.DownloadFile(dbc.Ctx, img.StorageKey)
	if err != nil {
		return nil, apierr.Storage("image_read_failed", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, apierr.Storage("image_read_failed", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	annotation, err := s.annotationRepo.GetLatestByImageID(dbc, imageID)
	if err != nil {
		return nil, fmt.Errorf("load annotation: %w", err)
	}

	dc := gg.NewContextForImage(decoded)
	if s.fontFace != nil {
		dc.SetFontFace(s.fontFace)
	}

	if annotation != nil {
		objects, err := annotation.ObjectList()
		if err != nil {
			return nil, fmt.Errorf("decode objects: %w", err)
		}
		classes, err := project.ClassList()
		if err != nil {
			return nil, fmt.Errorf("decode project classes: %w", err)
		}
		colorByID := make(map[string]string, len(classes))
		for _, c := range classes {
			colorByID[c.ID] = c.Color
		}

		w := float64(dc.Width())
		h := float64(dc.Height())
		for _, o := range objects {
			boxW := o.Width * w
			boxH := o.Height * h
			boxX := o.X*w - boxW/2
			boxY := o.Y*h - boxH/2

			hex := colorByID[o.ClassID]
			if hex == "" {
				hex = "#ff0000"
			}
			dc.SetHexColor(hex)
			dc.SetLineWidth(defaultPreviewLineWidth)
			dc.DrawRectangle(boxX, boxY, boxW, boxH)
			dc.Stroke()

			if o.ClassName != "" {
				tw, th := dc.MeasureString(o.ClassName)
				labelY := boxY - 4
				if labelY < th {
					labelY = boxY + th + 2
				}
				dc.DrawRectangle(boxX, labelY-th, tw+6, th+4)
				dc.Fill()
				dc.SetHexColor("#ffffff")
				dc.DrawString(o.ClassName, boxX+3, labelY)
				dc.SetHexColor(hex)
			}
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
