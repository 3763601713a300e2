package repository

import (
	"context"

	"rdpmon/model"
)

// Store persists the whole session document: load everything, mutate in
// memory, save everything. There are no partial writes.
//
// Implementations return a normalized, never-nil document and recover
// from corrupt stored state by resetting to an empty document instead of
// surfacing a fatal error.
type Store interface {
	LoadAll(ctx context.Context) (*model.Document, error)
	SaveAll(ctx context.Context, doc *model.Document) error
}
