package database

import (
	"context"
	"fmt"
)

// TableOwner is implemented by repositories that own a table.
type TableOwner interface {
	EnsureTable(ctx context.Context) error
}

// Registry is the explicit list of persisted entity types. Owners are
// ensured in registration order, so dependencies go first.
type Registry struct {
	names  []string
	owners []TableOwner
}

// Register appends an owner under a name used in error messages.
func (r *Registry) Register(name string, owner TableOwner) {
	r.names = append(r.names, name)
	r.owners = append(r.owners, owner)
}

// Names returns registered entity names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// EnsureAll runs EnsureTable for every registered owner, stopping at the first failure.
func (r *Registry) EnsureAll(ctx context.Context) error {
	for i, o := range r.owners {
		if err := o.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", r.names[i], err)
		}
	}
	return nil
}
