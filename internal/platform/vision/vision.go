package vision

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

// LocalizedBox is one detected object, expressed in the normalized
// center/width/height form annotations use. Coordinates are fractions of the
// image dimensions in [0,1].
type LocalizedBox struct {
	Name       string
	Confidence float64
	X          float64
	Y          float64
	Width      float64
	Height     float64
}

// Localizer finds objects in an image already stored in GCS. Implementations
// never read image bytes back through the API server.
type Localizer interface {
	LocalizeObjects(ctx context.Context, gcsURI string) ([]LocalizedBox, error)
	Close() error
}

type localizer struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewLocalizer(log *logger.Logger) (Localizer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "vision.Localizer")

	ctx := context.Background()
	var opts []option.ClientOption
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &localizer{log: slog, client: client}, nil
}

func (s *localizer) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *localizer) LocalizeObjects(ctx context.Context, gcsURI string) ([]LocalizedBox, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{
					Source: &visionpb.ImageSource{GcsImageUri: gcsURI},
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION},
				},
			},
		},
	}
	resp, err := s.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	out := make([]LocalizedBox, 0, len(r0.LocalizedObjectAnnotations))
	for _, ann := range r0.LocalizedObjectAnnotations {
		if ann == nil {
			continue
		}
		box, ok := boxFromBoundingPoly(ann.BoundingPoly)
		if !ok {
			continue
		}
		box.Name = ann.Name
		box.Confidence = float64(ann.Score)
		out = append(out, box)
	}
	return out, nil
}

// boxFromBoundingPoly reduces a normalized-vertex polygon to an axis-aligned
// center/width/height box, clamped to [0,1].
func boxFromBoundingPoly(bp *visionpb.BoundingPoly) (LocalizedBox, bool) {
	if bp == nil || len(bp.NormalizedVertices) == 0 {
		return LocalizedBox{}, false
	}
	minX, minY := 1.0, 1.0
	maxX, maxY := 0.0, 0.0
	for _, v := range bp.NormalizedVertices {
		if v == nil {
			continue
		}
		x := clamp01(float64(v.X))
		y := clamp01(float64(v.Y))
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	if maxX <= minX || maxY <= minY {
		return LocalizedBox{}, false
	}
	return LocalizedBox{
		X:      (minX + maxX) / 2,
		Y:      (minY + maxY) / 2,
		Width:  maxX - minX,
		Height: maxY - minY,
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
