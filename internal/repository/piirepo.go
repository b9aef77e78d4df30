package repository

import (
	"context"

	"github.com/algohackers/saarthi-vault/internal/model"
)

// PIIRepository provides append-only access to encrypted PII records. All
// queries are scoped by user_id; there is no cross-user path.
type PIIRepository interface {
	// Store appends a new record; existing rows are never mutated.
	Store(ctx context.Context, rec *model.PIIRecord) error
	// GetLatest returns the most recently created record for the pair.
	GetLatest(ctx context.Context, userID, dataType string) (*model.PIIRecord, error)
	// ListDataTypes returns the distinct data types stored for the user.
	ListDataTypes(ctx context.Context, userID string) ([]string, error)
}
