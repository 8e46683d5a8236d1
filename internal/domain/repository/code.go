package repository

import "context"

// CodeStore persists the used payment code registry within one local tier.
type CodeStore interface {
	// Add binds codes to an order. Binding an already-bound code returns
	// domain ErrAlreadyExists.
	Add(ctx context.Context, orderID string, codes []string) error
	// Lookup returns the order holding the code, or domain ErrNotFound.
	Lookup(ctx context.Context, code string) (string, error)
	// Remove unbinds codes as part of a verified rollback.
	Remove(ctx context.Context, codes []string) error
	All(ctx context.Context) (map[string]string, error)
}
