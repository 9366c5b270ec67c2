package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/models"
)

// KeywordRepository handles keyword rows owned by workflows.
type KeywordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewKeywordRepository creates a new keyword repository.
func NewKeywordRepository(db *sql.DB, logger *slog.Logger) *KeywordRepository {
	return &KeywordRepository{db: db, logger: logger}
}

func (r *KeywordRepository) Save(ctx context.Context, keyword *models.Keyword) error {
	now := time.Now().UTC()

	if keyword.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate keyword ID: %w", err)
		}

		keyword.ID = id.String()
	}

	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = now
	}

	keyword.UpdatedAt = now

	query := `
		INSERT INTO keywords
			(id, workflow_id, organization_id, phrase, seed, longtail_status, search_volume, cluster_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			longtail_status = EXCLUDED.longtail_status,
			search_volume = EXCLUDED.search_volume,
			cluster_id = EXCLUDED.cluster_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		keyword.ID,
		keyword.WorkflowID,
		keyword.OrganizationID,
		keyword.Phrase,
		keyword.Seed,
		keyword.LongtailStatus,
		keyword.SearchVolume,
		keyword.ClusterID,
		keyword.CreatedAt,
		keyword.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save keyword: %w", err)
	}

	return nil
}

func (r *KeywordRepository) ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.Keyword, error) {
	query := `
		SELECT id, workflow_id, organization_id, phrase, seed, longtail_status, search_volume, cluster_id, created_at, updated_at
		FROM keywords
		WHERE workflow_id = $1 AND organization_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var keywords []*models.Keyword

	for rows.Next() {
		var keyword models.Keyword

		err := rows.Scan(
			&keyword.ID,
			&keyword.WorkflowID,
			&keyword.OrganizationID,
			&keyword.Phrase,
			&keyword.Seed,
			&keyword.LongtailStatus,
			&keyword.SearchVolume,
			&keyword.ClusterID,
			&keyword.CreatedAt,
			&keyword.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}

		keywords = append(keywords, &keyword)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}

	return keywords, nil
}
