package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

const statsCacheTTL = 5 * time.Minute

// StatsService recomputes project counters from current image counts. Counters
// are never incremented in place; every mutation path calls RecomputeProject
// so a stale value is corrected by the next mutation.
type StatsService interface {
	RecomputeProject(dbc dbctx.Context, projectID uuid.UUID) (*domain.ProjectStats, error)
	GetProjectStats(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error)
}

type statsService struct {
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	imageRepo   repos.ImageRepo
	cache       *redis.Client
}

// NewStatsService wires the aggregator. cache may be nil; stats are then
// always read through from the document store.
func NewStatsService(
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	imageRepo repos.ImageRepo,
	cache *redis.Client,
) StatsService {
	return &statsService{
		log:         baseLog.With("service", "StatsService"),
		projectRepo: projectRepo,
		imageRepo:   imageRepo,
		cache:       cache,
	}
}

func statsCacheKey(projectID uuid.UUID) string {
	return fmt.Sprintf("labelbridge:project_stats:%s", projectID)
}

func (s *statsService) RecomputeProject(dbc dbctx.Context, projectID uuid.UUID) (*domain.ProjectStats, error) {
	total, err := s.imageRepo.CountByProjectID(dbc, projectID)
	if err != nil {
		return nil, fmt.Errorf("count total images: %w", err)
	}
	annotated, err := s.imageRepo.CountByAnnotationStatus(dbc, projectID, domain.AnnotationStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("count annotated images: %w", err)
	}
	reviewed, err := s.imageRepo.CountByReviewStatuses(dbc, projectID, []domain.ReviewStatus{
		domain.ReviewStatusApproved,
		domain.ReviewStatusFlagged,
	})
	if err != nil {
		return nil, fmt.Errorf("count reviewed images: %w", err)
	}
	approved, err := s.imageRepo.CountByReviewStatuses(dbc, projectID, []domain.ReviewStatus{
		domain.ReviewStatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("count approved images: %w", err)
	}

	stats := &domain.ProjectStats{
		ProjectID:            projectID,
		TotalImages:          int(total),
		AnnotatedImages:      int(annotated),
		ReviewedImages:       int(reviewed),
		ApprovedImages:       int(approved),
		CompletionPercentage: completionPercentage(int(approved), int(total)),
	}

	if err := s.projectRepo.UpdateFields(dbc, projectID, map[string]any{
		"total_images":          stats.TotalImages,
		"annotated_images":      stats.AnnotatedImages,
		"reviewed_images":       stats.ReviewedImages,
		"approved_images":       stats.ApprovedImages,
		"completion_percentage": stats.CompletionPercentage,
	}); err != nil {
		return nil, fmt.Errorf("write project counters: %w", err)
	}

	s.invalidate(dbc.Ctx, projectID)
	return stats, nil
}

func (s *statsService) GetProjectStats(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statsCacheKey(projectID)).Bytes(); err == nil {
			var cached domain.ProjectStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	project, err := s.projectRepo.GetByID(dbctx.New(ctx), projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project_not_found", fmt.Errorf("project %s not found", projectID))
	}

	stats := &domain.ProjectStats{
		ProjectID:            project.ID,
		TotalImages:          project.TotalImages,
		AnnotatedImages:      project.AnnotatedImages,
		ReviewedImages:       project.ReviewedImages,
		ApprovedImages:       project.ApprovedImages,
		CompletionPercentage: project.CompletionPercentage,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey(projectID), raw, statsCacheTTL).Err(); err != nil {
				s.log.Warn("stats cache set failed", "project_id", projectID, "error", err)
			}
		}
	}
	return stats, nil
}

func (s *statsService) invalidate(ctx context.Context, projectID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey(projectID)).Err(); err != nil {
		s.log.Warn("stats cache invalidation failed", "project_id", projectID, "error", err)
	}
}

func completionPercentage(approved, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(approved) / float64(total)))
}
