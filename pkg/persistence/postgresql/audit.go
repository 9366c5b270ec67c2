package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/models"
)

// AuditRepository appends and reads the immutable transition log. It exposes
// no update or delete on purpose.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Append(ctx context.Context, record *models.TransitionRecord) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate audit ID: %w", err)
		}

		record.ID = id.String()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var metadataJSON []byte

	if record.Metadata != nil {
		data, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}

		metadataJSON = data
	}

	query := `
		INSERT INTO workflow_transitions
			(id, workflow_id, organization_id, previous_state, new_state, reason, actor, forced, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.WorkflowID,
		record.OrganizationID,
		record.PreviousState,
		record.NewState,
		record.Reason,
		record.Actor,
		record.Forced,
		metadataJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transition record: %w", err)
	}

	return nil
}

func (r *AuditRepository) ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.TransitionRecord, error) {
	query := `
		SELECT id, workflow_id, organization_id, previous_state, new_state, reason, actor, forced, metadata, created_at
		FROM workflow_transitions
		WHERE workflow_id = $1 AND organization_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transition records: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var records []*models.TransitionRecord

	for rows.Next() {
		var (
			record       models.TransitionRecord
			metadataJSON []byte
		)

		err := rows.Scan(
			&record.ID,
			&record.WorkflowID,
			&record.OrganizationID,
			&record.PreviousState,
			&record.NewState,
			&record.Reason,
			&record.Actor,
			&record.Forced,
			&metadataJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition record: %w", err)
		}

		if metadataJSON != nil {
			err := json.Unmarshal(metadataJSON, &record.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transition records: %w", err)
	}

	return records, nil
}

func (r *AuditRepository) CountEnteredByState(ctx context.Context, organizationID string, from, to time.Time) (map[models.State]int, error) {
	query := `
		SELECT new_state, COUNT(DISTINCT workflow_id)
		FROM workflow_transitions
		WHERE organization_id = $1 AND created_at >= $2 AND created_at <= $3
		GROUP BY new_state
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query funnel counts: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	counts := make(map[models.State]int)

	for rows.Next() {
		var (
			state models.State
			count int
		)

		err := rows.Scan(&state, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan funnel count: %w", err)
		}

		counts[state] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funnel counts: %w", err)
	}

	return counts, nil
}
