// Package postgresql provides the PostgreSQL persistence implementation for
// the intent pipeline. The transition engine's concurrency safety rests on
// this package's conditional state UPDATE.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/seoforge/intent-engine/pkg/persistence"
	"github.com/seoforge/intent-engine/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	auditRepo    *AuditRepository
	approvalRepo *ApprovalRepository
	articleRepo  *ArticleRepository
	keywordRepo  *KeywordRepository
}

// NewPersistence opens the database, runs migrations and wires the
// repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		auditRepo:    NewAuditRepository(database, logger),
		approvalRepo: NewApprovalRepository(database),
		articleRepo:  NewArticleRepository(database, logger),
		keywordRepo:  NewKeywordRepository(database, logger),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) AuditRepository() persistence.AuditRepository {
	return p.auditRepo
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return p.approvalRepo
}

func (p *Persistence) ArticleRepository() persistence.ArticleRepository {
	return p.articleRepo
}

func (p *Persistence) KeywordRepository() persistence.KeywordRepository {
	return p.keywordRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
