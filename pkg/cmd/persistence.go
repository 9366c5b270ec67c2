// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seoforge/intent-engine/pkg/persistence"
	"github.com/seoforge/intent-engine/pkg/persistence/memory"
	"github.com/seoforge/intent-engine/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the database URL scheme. Postgres is
// the production store; anything else falls back to the in-memory store,
// which is for development only and loses data on restart.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres persistence: %w", err)
		}

		return store, nil
	default:
		logger.Warn("using in-memory persistence, data will not survive restarts")

		return memory.NewPersistence(), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
