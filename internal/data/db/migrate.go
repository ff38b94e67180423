package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		// Identity + auth
		&domain.User{},
		&domain.UserToken{},

		// Projects
		&domain.Project{},
		&domain.ProjectMember{},

		// Annotation pipeline
		&domain.ProjectImage{},
		&domain.Annotation{},
		&domain.Assignment{},
		&domain.Submission{},
	)
}

// EnsureWorkflowIndexes adds the partial indexes AutoMigrate cannot express.
// The submission index is what makes "at most one live submission per
// assignment" hold under concurrent submits, not just by query.
func EnsureWorkflowIndexes(gdb *gorm.DB) error {
	if err := gdb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_submission_assignment_live
		ON submission(assignment_id)
		WHERE status IN ('SUBMITTED', 'UNDER_REVIEW') AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_submission_assignment_live: %w", err)
	}

	if err := gdb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_annotation_identity
		ON annotation(project_id, image_id, user_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_annotation_identity: %w", err)
	}

	if err := gdb.Exec(`
		CREATE INDEX IF NOT EXISTS idx_project_image_status_counts
		ON project_image(project_id, annotation_status, review_status)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_project_image_status_counts: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureWorkflowIndexes(s.db); err != nil {
		s.log.Error("Workflow index migration failed", "error", err)
		return err
	}
	return nil
}
