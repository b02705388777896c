// Package browser implements the 'browser' agent: it analyzes a shopper's
// profile and produces an initial ranked set of product recommendations.
package browser

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/profile"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// Interest weights. Purchases signal the hardest, then stated preferences,
// then browsing history; tags on purchased products add a small bonus.
const (
	preferenceWeight = 0.3
	browsingWeight   = 0.2
	purchaseWeight   = 0.5
	purchaseTagBonus = 0.1
)

// Module implements the registry.Module interface for this package.
type Module struct {
	catalog *catalog.Store
}

// New creates the browser agent over the given catalog.
func New(cat *catalog.Store) *Module {
	return &Module{catalog: cat}
}

// Name implements agent.Handler.
func (m *Module) Name() string { return "browser" }

// Register registers the handler with the gateway registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(m)
}

// Input defines the payload shape the browser agent accepts.
type Input struct {
	User profile.Profile `json:"user"`
}

// Output is the browser agent's result envelope.
type Output struct {
	RecommendedProducts []catalog.Product  `json:"recommended_products"`
	UserInterests       map[string]float64 `json:"user_interests"`
	Reasoning           []string           `json:"reasoning"`
	ConfidenceScores    map[string]float64 `json:"confidence_scores"`
}

// Handle produces up to five ranked recommendations for the submitted
// profile: interest analysis, hybrid filtering, budget filter, final rank.
func (m *Module) Handle(ctx context.Context, t task.Task) (any, error) {
	logger := ctxlog.FromContext(ctx).With("agent", m.Name())

	var in Input
	if err := agent.DecodePayload(t, &in); err != nil {
		return nil, err
	}
	logger.Debug("Starting product browsing and recommendation.", "user_id", in.User.ID)

	interests := m.analyzeInterests(in.User)
	recommendations := m.hybridFilter(in.User, interests)
	affordable := filterByBudget(recommendations, in.User)
	ranked := m.rank(affordable, in.User)

	top := ranked
	if len(top) > 5 {
		top = top[:5]
	}

	confidence := make(map[string]float64, len(top))
	for _, p := range top {
		confidence[p.ID] = 0.7 + rand.Float64()*0.25
	}

	logger.Debug("Generated initial recommendations.", "count", len(ranked))

	return &Output{
		RecommendedProducts: top,
		UserInterests:       interests,
		Reasoning:           m.reasoning(ranked, in.User),
		ConfidenceScores:    confidence,
	}, nil
}

// analyzeInterests folds preferences, browsing history, and purchase history
// into a weighted interest map.
func (m *Module) analyzeInterests(user profile.Profile) map[string]float64 {
	interests := make(map[string]float64)

	for _, pref := range user.Preferences {
		interests[pref] += preferenceWeight
	}

	for _, item := range user.BrowsingHistory {
		// Browsing entries look like "electronics_gaming"; the leading
		// segment is the category.
		category := item
		if i := strings.Index(item, "_"); i >= 0 {
			category = item[:i]
		}
		interests[category] += browsingWeight
	}

	for _, purchase := range user.PurchaseHistory {
		product, ok := m.catalog.Get(purchase)
		if !ok {
			continue
		}
		interests[product.Category] += purchaseWeight
		for _, tag := range product.Tags {
			interests[tag] += purchaseTagBonus
		}
	}

	return interests
}

// scored pairs a product with a ranking score.
type scored struct {
	product catalog.Product
	score   float64
}

// sortScored orders by score descending with product ID as a deterministic
// tie break.
func sortScored(items []scored) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].product.ID < items[j].product.ID
	})
}

func toProducts(items []scored) []catalog.Product {
	out := make([]catalog.Product, len(items))
	for i, it := range items {
		out[i] = it.product
	}
	return out
}

// collaborativeFilter scores the whole catalog against the interest map.
func (m *Module) collaborativeFilter(interests map[string]float64) []catalog.Product {
	lowered := lowerKeys(interests)

	var items []scored
	for _, p := range m.catalog.All() {
		score := 0.0
		if _, ok := lowered[strings.ToLower(p.Category)]; ok {
			score += interests[p.Category] * 0.4
		}
		for _, tag := range p.Tags {
			if _, ok := lowered[strings.ToLower(tag)]; ok {
				score += interests[tag] * 0.2
			}
		}
		score += (p.Rating / 5.0) * 0.3
		items = append(items, scored{product: p, score: score})
	}
	sortScored(items)
	return toProducts(items)
}

// contentFilter scores products by feature overlap with stated preferences.
func (m *Module) contentFilter(user profile.Profile, interests map[string]float64) []catalog.Product {
	var items []scored
	for _, p := range m.catalog.All() {
		score := 0.0
		for _, feature := range p.Features {
			for _, pref := range user.Preferences {
				if strings.Contains(strings.ToLower(feature), strings.ToLower(pref)) {
					score += 0.4
				}
			}
		}
		score += interests[p.Category] * 0.3
		items = append(items, scored{product: p, score: score})
	}
	sortScored(items)
	return toProducts(items)
}

// hybridFilter merges collaborative and content-based rankings with a
// 0.6/0.4 weighting over each list's top ten.
func (m *Module) hybridFilter(user profile.Profile, interests map[string]float64) []catalog.Product {
	collab := m.collaborativeFilter(interests)
	content := m.contentFilter(user, interests)

	scores := make(map[string]float64)
	for i, p := range top10(collab) {
		scores[p.ID] += float64(10-i) / 10 * 0.6
	}
	for i, p := range top10(content) {
		scores[p.ID] += float64(10-i) / 10 * 0.4
	}

	var items []scored
	for id, score := range scores {
		if p, ok := m.catalog.Get(id); ok {
			items = append(items, scored{product: p, score: score})
		}
	}
	sortScored(items)
	return toProducts(items)
}

func top10(products []catalog.Product) []catalog.Product {
	if len(products) > 10 {
		return products[:10]
	}
	return products
}

func filterByBudget(products []catalog.Product, user profile.Profile) []catalog.Product {
	min, max := user.Budget()
	var out []catalog.Product
	for _, p := range products {
		if p.Price >= min && p.Price <= max {
			out = append(out, p)
		}
	}
	return out
}

// rank applies the user-specific final ordering: age affinity, rating, and
// stock availability.
func (m *Module) rank(products []catalog.Product, user profile.Profile) []catalog.Product {
	var items []scored
	for _, p := range products {
		score := 0.0
		if user.Age < 30 && hasTag(p, "gaming") {
			score += 0.2
		} else if user.Age >= 30 && hasTag(p, "home") {
			score += 0.2
		}
		score += (p.Rating - 3.0) / 2.0 * 0.3
		if p.Stock > 10 {
			score += 0.1
		}
		items = append(items, scored{product: p, score: score})
	}
	sortScored(items)
	return toProducts(items)
}

func hasTag(p catalog.Product, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// reasoning explains the top three picks in terms of the user's stated
// preferences and ratings.
func (m *Module) reasoning(ranked []catalog.Product, user profile.Profile) []string {
	prefs := make(map[string]struct{}, len(user.Preferences))
	for _, p := range user.Preferences {
		prefs[strings.ToLower(p)] = struct{}{}
	}

	limit := len(ranked)
	if limit > 3 {
		limit = 3
	}

	var out []string
	for _, p := range ranked[:limit] {
		var reasons []string
		if _, ok := prefs[strings.ToLower(p.Category)]; ok {
			reasons = append(reasons, "matches your interest in "+p.Category)
		}
		if p.Rating >= 4.5 {
			reasons = append(reasons, "highly rated by customers")
		}
		for _, tag := range p.Tags {
			if _, ok := prefs[tag]; ok {
				reasons = append(reasons, "aligns with your preferences")
				break
			}
		}
		out = append(out, p.Name+": "+strings.Join(reasons, ", "))
	}
	return out
}

func lowerKeys(m map[string]float64) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[strings.ToLower(k)] = struct{}{}
	}
	return out
}
