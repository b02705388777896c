// Package catalog holds the product inventory the recommendation agents
// work against. The store is seeded once at startup, either from the
// configuration's product blocks or from the built-in sample set, and is
// read-only afterwards.
package catalog

import (
	"sort"
	"strings"
)

// Product is one sellable item.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	Features    []string `json:"features"`
	Description string   `json:"description"`
	Stock       int      `json:"stock"`
	Tags        []string `json:"tags"`
}

// Store is an immutable-after-init product lookup.
type Store struct {
	products map[string]Product
	order    []string
}

// New creates a Store holding the given products. Later duplicates of an ID
// replace earlier ones, matching configuration merge semantics.
func New(products []Product) *Store {
	s := &Store{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, exists := s.products[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
	return s
}

// Get returns the product with the given id.
func (s *Store) Get(id string) (Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// FindByName returns the product with the exact given name.
func (s *Store) FindByName(name string) (Product, bool) {
	for _, id := range s.order {
		if s.products[id].Name == name {
			return s.products[id], true
		}
	}
	return Product{}, false
}

// All returns every product in stable insertion order.
func (s *Store) All() []Product {
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// Len returns the number of products in the store.
func (s *Store) Len() int {
	return len(s.products)
}

// Query restricts a Search. Empty fields do not restrict.
type Query struct {
	Text     string   // substring match on name or description
	Category string   // exact category, case-insensitive
	Tags     []string // match if any tag is present
}

// Search returns all products matching the query, in stable store order.
func (s *Store) Search(q Query) []Product {
	var results []Product
	for _, id := range s.order {
		p := s.products[id]
		if q.Text != "" {
			text := strings.ToLower(q.Text)
			if !strings.Contains(strings.ToLower(p.Name), text) &&
				!strings.Contains(strings.ToLower(p.Description), text) {
				continue
			}
		}
		if q.Category != "" && !strings.EqualFold(q.Category, p.Category) {
			continue
		}
		if len(q.Tags) > 0 && !hasAnyTag(p.Tags, q.Tags) {
			continue
		}
		results = append(results, p)
	}
	return results
}

// Categories returns the sorted set of distinct categories in the store.
func (s *Store) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range s.products {
		seen[p.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
