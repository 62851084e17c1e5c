package giveaway

import (
	"slices"
	"strings"
)

// Registry is the in-memory set of active giveaways, iterated in insertion
// order. It performs no I/O and is not safe for concurrent use.
type Registry struct {
	order []string
	byID  map[string]*Giveaway
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Giveaway)}
}

// Insert adds g, or replaces the entry with the same id keeping its position.
func (r *Registry) Insert(g *Giveaway) {
	if _, ok := r.byID[g.ID]; !ok {
		r.order = append(r.order, g.ID)
	}
	r.byID[g.ID] = g
}

// Get returns the live entry; callers mutate it in place.
func (r *Registry) Get(id string) (*Giveaway, bool) {
	g, ok := r.byID[id]
	return g, ok
}

// FindByItemSubstring returns the first giveaway, in insertion order, whose
// item contains query case-insensitively.
func (r *Registry) FindByItemSubstring(query string) (*Giveaway, bool) {
	q := strings.ToLower(query)
	for _, id := range r.order {
		g := r.byID[id]
		if strings.Contains(strings.ToLower(g.Item), q) {
			return g, true
		}
	}
	return nil, false
}

// Resolve looks query up as an id first, then as an item substring. Blank
// queries match nothing.
func (r *Registry) Resolve(query string) (*Giveaway, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}
	if g, ok := r.Get(query); ok {
		return g, true
	}
	return r.FindByItemSubstring(query)
}

func (r *Registry) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true
}

// All returns deep copies of every entry in insertion order.
func (r *Registry) All() []Giveaway {
	out := make([]Giveaway, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
