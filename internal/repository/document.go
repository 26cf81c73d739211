package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// ErrNotFound signals that no document row has the requested ID.
var ErrNotFound = errors.New("document not found")

// DocumentRepository defines data access for documents using SQL queries only.
// Implementations hold persistence only; orchestration lives in the service.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row,
	// including the generated ID and default timestamps.
	Create(ctx context.Context, doc *model.NewDocument) (*model.Document, error)

	// FindByID returns a document by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// FindAll returns documents matching the filter, most recently uploaded first.
	FindAll(ctx context.Context, f DocumentFilter) ([]model.Document, error)

	// Count returns the number of documents matching the filter, ignoring pagination.
	Count(ctx context.Context, f DocumentFilter) (int, error)

	// Update applies the fields present in the patch and refreshes updated_at.
	// An empty patch returns the current row unchanged. Missing rows yield ErrNotFound.
	Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error)

	// Delete removes a document by ID and reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// CategoryStats counts documents per category, largest first.
	CategoryStats(ctx context.Context) ([]model.CategoryCount, error)

	// OverviewStats returns the total document count and byte size.
	OverviewStats(ctx context.Context) (*model.Overview, error)
}

// DocumentFilter selects documents. Zero values disable a condition;
// Limit == 0 returns every matching row.
type DocumentFilter struct {
	Category model.Category
	Search   string
	Limit    int
	Offset   int
}
