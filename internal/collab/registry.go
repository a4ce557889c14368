// Package collab tracks where remote collaborators' cursors are.
package collab

import "github.com/bodul/crossgrid/internal/grid"

// Registry maps a collaborator identity to the cell their cursor is on.
// Positions are stored as received: nothing is checked against the grid.
type Registry struct {
	cursors map[string]grid.Coord
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{cursors: make(map[string]grid.Coord)}
}

// Upsert records the position of id, replacing any previous one.
func (r *Registry) Upsert(id string, c grid.Coord) {
	r.cursors[id] = c
}

// Remove forgets id. Unknown identities are ignored.
func (r *Registry) Remove(id string) {
	delete(r.cursors, id)
}

// Position returns the position of id.
func (r *Registry) Position(id string) (grid.Coord, bool) {
	c, ok := r.cursors[id]
	return c, ok
}

// Len returns the number of tracked collaborators.
func (r *Registry) Len() int {
	return len(r.cursors)
}

// Snapshot returns a copy of the current positions. Iteration order is
// meaningless.
func (r *Registry) Snapshot() map[string]grid.Coord {
	cp := make(map[string]grid.Coord, len(r.cursors))
	for id, c := range r.cursors {
		cp[id] = c
	}
	return cp
}
