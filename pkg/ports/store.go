package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// StateStore defines the interface for persisting session state documents.
type StateStore interface {
	// Get retrieves the document for a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Get(ctx context.Context, sessionID string) (*domain.Document, error)

	// Put persists the listed top-level keys of doc. A listed key that is absent
	// from doc is removed from the stored record. Keys not listed are left untouched,
	// so concurrent writers of disjoint keys do not lose each other's updates.
	Put(ctx context.Context, sessionID string, doc *domain.Document, keys []string) error

	// Delete removes the stored record of a session.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of stored sessions.
	List(ctx context.Context) ([]string, error)
}
