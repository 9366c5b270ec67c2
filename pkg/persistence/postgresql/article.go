package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// ArticleRepository handles article rows owned by workflows.
type ArticleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sql.DB, logger *slog.Logger) *ArticleRepository {
	return &ArticleRepository{db: db, logger: logger}
}

func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) error {
	now := time.Now().UTC()

	if article.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate article ID: %w", err)
		}

		article.ID = id.String()
	}

	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}

	article.UpdatedAt = now

	query := `
		INSERT INTO articles
			(id, workflow_id, organization_id, title, subtopic_id, generation_status, link_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		article.ID,
		article.WorkflowID,
		article.OrganizationID,
		article.Title,
		article.SubtopicID,
		article.GenerationStatus,
		article.LinkStatus,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

func (r *ArticleRepository) ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.Article, error) {
	query := articleSelect + `
		WHERE workflow_id = $1 AND organization_id = $2
		ORDER BY created_at ASC
	`

	return r.queryArticles(ctx, query, workflowID, organizationID)
}

func (r *ArticleRepository) ListCompletedUnlinked(ctx context.Context, workflowID, organizationID string) ([]*models.Article, error) {
	query := articleSelect + `
		WHERE workflow_id = $1 AND organization_id = $2
		  AND generation_status = '` + string(models.GenerationCompleted) + `'
		  AND link_status = '` + string(models.LinkStatusUnlinked) + `'
		ORDER BY created_at ASC
	`

	return r.queryArticles(ctx, query, workflowID, organizationID)
}

func (r *ArticleRepository) MarkLinked(ctx context.Context, articleID, organizationID string) error {
	query := `
		UPDATE articles
		SET link_status = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, models.LinkStatusLinked, articleID, organizationID)
	if err != nil {
		return fmt.Errorf("failed to mark article linked: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrArticleNotFound
	}

	return nil
}

const articleSelect = `
	SELECT id, workflow_id, organization_id, title, subtopic_id, generation_status, link_status, created_at, updated_at
	FROM articles
`

func (r *ArticleRepository) queryArticles(ctx context.Context, query string, args ...any) ([]*models.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var articles []*models.Article

	for rows.Next() {
		var article models.Article

		err := rows.Scan(
			&article.ID,
			&article.WorkflowID,
			&article.OrganizationID,
			&article.Title,
			&article.SubtopicID,
			&article.GenerationStatus,
			&article.LinkStatus,
			&article.CreatedAt,
			&article.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		articles = append(articles, &article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}
