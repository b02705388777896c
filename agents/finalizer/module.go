// Package finalizer implements the 'finalizer' agent: it refines the
// recommendation set with the shopper's answers and prepares cross-sells,
// bundles, pricing, and a cart preview.
package finalizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/profile"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// Pricing constants used across bundling and the cart preview.
const (
	mainBundleDiscount      = 0.10
	accessoryBundleDiscount = 0.15
	financingThreshold      = 500.0
	financingMonths         = 12
	taxRate                 = 0.08
	freeShippingMinimum     = 50.0
	flatShipping            = 9.99
)

// crossSellRules maps a product tag to the names of complementary products.
var crossSellRules = map[string][]string{
	"gaming":  {"Gaming Mouse RGB", "Wireless Headphones Elite"},
	"laptop":  {"Gaming Mouse RGB", "Wireless Headphones Elite"},
	"fitness": {"Bluetooth Speaker"},
	"kitchen": {"Smart Fitness Watch"},
	"audio":   {"Gaming Laptop Pro"},
}

// Module implements the registry.Module interface for this package.
type Module struct {
	catalog *catalog.Store
}

// New creates the finalizer agent over the given catalog.
func New(cat *catalog.Store) *Module {
	return &Module{catalog: cat}
}

// Name implements agent.Handler.
func (m *Module) Name() string { return "finalizer" }

// Register registers the handler with the gateway registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(m)
}

// Input defines the payload shape the finalizer agent accepts.
type Input struct {
	User    profile.Profile `json:"user"`
	Context Context         `json:"context"`
}

// Context carries the upstream recommendations plus the shopper's answers.
type Context struct {
	RecommendedProducts []catalog.Product `json:"recommended_products"`
	UserResponses       Responses         `json:"user_responses"`
}

// Responses is the subset of clarification answers the refinement step acts
// on. Pointer fields distinguish "not answered" from zero values.
type Responses struct {
	PreferredCategory string   `json:"preferred_category,omitempty"`
	MaxPrice          *float64 `json:"max_price,omitempty"`
	RequiredFeatures  []string `json:"required_features,omitempty"`
}

// Bundle is a discounted combination of products.
type Bundle struct {
	Name          string            `json:"name"`
	Products      []catalog.Product `json:"products"`
	OriginalPrice float64           `json:"original_price"`
	BundlePrice   float64           `json:"bundle_price"`
	Savings       float64           `json:"savings"`
	Description   string            `json:"description"`
}

// Pricing summarizes totals, savings, and payment options.
type Pricing struct {
	IndividualTotal    float64  `json:"individual_total"`
	BestBundleSavings  float64  `json:"best_bundle_savings"`
	PaymentOptions     []string `json:"payment_options"`
	FinancingAvailable bool     `json:"financing_available"`
	MonthlyPayment     float64  `json:"monthly_payment,omitempty"`
}

// CartItem is one line of the cart preview.
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart is the estimated checkout preview.
type Cart struct {
	Items             []CartItem `json:"items"`
	Subtotal          float64    `json:"subtotal"`
	EstimatedTax      float64    `json:"estimated_tax"`
	EstimatedShipping float64    `json:"estimated_shipping"`
	EstimatedTotal    float64    `json:"estimated_total"`
}

// Output is the finalizer agent's result envelope.
type Output struct {
	FinalRecommendations []catalog.Product `json:"final_recommendations"`
	CrossSellSuggestions []catalog.Product `json:"cross_sell_suggestions"`
	UpsellSuggestions    []catalog.Product `json:"upsell_suggestions"`
	BundleOffers         []Bundle          `json:"bundle_offers"`
	PricingInformation   Pricing           `json:"pricing_information"`
	CartPreview          Cart              `json:"cart_preview"`
	NextSteps            []string          `json:"next_steps"`
	PersonalizedMessage  string            `json:"personalized_message"`
}

// Handle refines the recommendations and assembles the final offer.
func (m *Module) Handle(ctx context.Context, t task.Task) (any, error) {
	logger := ctxlog.FromContext(ctx).With("agent", m.Name())

	var in Input
	if err := agent.DecodePayload(t, &in); err != nil {
		return nil, err
	}
	logger.Debug("Starting finalization process.", "products", len(in.Context.RecommendedProducts))

	refined := m.refine(in.Context.RecommendedProducts, in.Context.UserResponses)
	crossSell := m.crossSell(refined, in.User)
	upsell := m.upsell(refined, in.User)
	bundles := m.bundles(refined, crossSell)
	pricing := m.pricing(refined, bundles)

	out := &Output{
		FinalRecommendations: refined,
		CrossSellSuggestions: crossSell,
		UpsellSuggestions:    upsell,
		BundleOffers:         bundles,
		PricingInformation:   pricing,
		CartPreview:          m.cartPreview(refined),
		NextSteps:            nextSteps(),
		PersonalizedMessage:  m.personalizedMessage(in.User, refined),
	}

	logger.Debug("Finalization complete.", "final_count", len(refined))
	return out, nil
}

// refine reweights the recommendation set with the shopper's answers and
// keeps the top three. Anything over the answered max price is dropped
// outright.
func (m *Module) refine(products []catalog.Product, responses Responses) []catalog.Product {
	type scored struct {
		product catalog.Product
		score   float64
	}

	var refined []scored
	for _, p := range products {
		score := 1.0

		if responses.PreferredCategory != "" {
			if strings.EqualFold(p.Category, responses.PreferredCategory) {
				score *= 1.5
			} else {
				score *= 0.5
			}
		}

		if responses.MaxPrice != nil {
			if p.Price > *responses.MaxPrice {
				continue
			}
			score *= 1.2
		}

		if len(responses.RequiredFeatures) > 0 {
			features := strings.ToLower(strings.Join(p.Features, " "))
			for _, req := range responses.RequiredFeatures {
				if strings.Contains(features, strings.ToLower(req)) {
					score *= 1.3
					break
				}
			}
		}

		refined = append(refined, scored{product: p, score: score})
	}

	sort.SliceStable(refined, func(i, j int) bool {
		return refined[i].score > refined[j].score
	})

	out := make([]catalog.Product, 0, 3)
	for _, s := range refined {
		out = append(out, s.product)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// crossSell finds complementary products via the rule table, capped at two
// items that fit in half the remaining budget.
func (m *Module) crossSell(main []catalog.Product, user profile.Profile) []catalog.Product {
	var candidates []catalog.Product
	for _, p := range main {
		for _, tag := range p.Tags {
			for _, name := range crossSellRules[tag] {
				candidate, ok := m.catalog.FindByName(name)
				if !ok || containsProduct(main, candidate.ID) || containsProduct(candidates, candidate.ID) {
					continue
				}
				candidates = append(candidates, candidate)
			}
		}
	}

	_, budgetMax := user.Budget()
	totalMain := 0.0
	for _, p := range main {
		totalMain += p.Price
	}
	remaining := budgetMax - totalMain

	var affordable []catalog.Product
	for _, p := range candidates {
		if p.Price <= remaining*0.5 {
			affordable = append(affordable, p)
		}
		if len(affordable) == 2 {
			break
		}
	}
	return affordable
}

// upsell proposes the cheapest higher-end alternative per product, same
// category, within budget, and at least as well rated. Capped at two.
func (m *Module) upsell(products []catalog.Product, user profile.Profile) []catalog.Product {
	_, budgetMax := user.Budget()

	var upsells []catalog.Product
	for _, p := range products {
		var higherEnd []catalog.Product
		for _, candidate := range m.catalog.Search(catalog.Query{Category: p.Category}) {
			if candidate.Price > p.Price && candidate.Price <= budgetMax && candidate.Rating >= p.Rating {
				higherEnd = append(higherEnd, candidate)
			}
		}
		if len(higherEnd) == 0 {
			continue
		}
		sort.SliceStable(higherEnd, func(i, j int) bool {
			return higherEnd[i].Price < higherEnd[j].Price
		})
		upsells = append(upsells, higherEnd[0])
		if len(upsells) == 2 {
			break
		}
	}
	return upsells
}

// bundles builds a main-product bundle and an accessory bundle when the
// inputs allow.
func (m *Module) bundles(main, crossSell []catalog.Product) []Bundle {
	var bundles []Bundle

	if len(main) >= 2 {
		price := main[0].Price + main[1].Price
		discount := price * mainBundleDiscount
		bundles = append(bundles, Bundle{
			Name:          "Recommended Bundle",
			Products:      []catalog.Product{main[0], main[1]},
			OriginalPrice: price,
			BundlePrice:   price - discount,
			Savings:       discount,
			Description:   "Perfect combination for your needs",
		})
	}

	if len(main) > 0 && len(crossSell) > 0 {
		accessory := crossSell[0]
		price := main[0].Price + accessory.Price
		discount := accessory.Price * accessoryBundleDiscount
		bundles = append(bundles, Bundle{
			Name:          "Complete Setup Bundle",
			Products:      []catalog.Product{main[0], accessory},
			OriginalPrice: price,
			BundlePrice:   price - discount,
			Savings:       discount,
			Description:   "Get everything you need with " + accessory.Name,
		})
	}

	return bundles
}

func (m *Module) pricing(products []catalog.Product, bundles []Bundle) Pricing {
	total := 0.0
	for _, p := range products {
		total += p.Price
	}

	pricing := Pricing{
		IndividualTotal: total,
		PaymentOptions:  []string{"Credit Card", "PayPal", "Apple Pay"},
	}

	for _, b := range bundles {
		if b.Savings > pricing.BestBundleSavings {
			pricing.BestBundleSavings = b.Savings
		}
	}

	if total > financingThreshold {
		pricing.FinancingAvailable = true
		pricing.MonthlyPayment = total / financingMonths
	}
	return pricing
}

func (m *Module) cartPreview(products []catalog.Product) Cart {
	cart := Cart{Items: make([]CartItem, 0, len(products))}
	for _, p := range products {
		cart.Items = append(cart.Items, CartItem{Name: p.Name, Price: p.Price, Quantity: 1})
		cart.Subtotal += p.Price
	}
	cart.EstimatedTax = cart.Subtotal * taxRate
	if cart.Subtotal < freeShippingMinimum {
		cart.EstimatedShipping = flatShipping
	}
	cart.EstimatedTotal = cart.Subtotal + cart.EstimatedTax + cart.EstimatedShipping
	return cart
}

func nextSteps() []string {
	return []string{
		"Review your personalized recommendations",
		"Consider the bundle offers for additional savings",
		"Add items to cart when ready",
		"Proceed to secure checkout",
		"Track your order after purchase",
	}
}

// personalizedMessage writes the closing pitch for the shopper.
func (m *Module) personalizedMessage(user profile.Profile, products []catalog.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("Hi %s, I couldn't find perfect matches right now, but let me know if you'd like to explore more options!", user.Name)
	}

	prefs := user.Preferences
	if len(prefs) > 2 {
		prefs = prefs[:2]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! Based on your preferences for %s, ", user.Name, strings.Join(prefs, ", "))
	fmt.Fprintf(&b, "I think the %s would be perfect for you. ", products[0].Name)
	if products[0].Rating >= 4.5 {
		b.WriteString("It has excellent customer reviews ")
	}
	if len(products) > 1 {
		plural := ""
		if len(products) > 2 {
			plural = "s"
		}
		fmt.Fprintf(&b, "and I've also included %d other great option%s ", len(products)-1, plural)
	}
	b.WriteString("that match your needs and budget. Ready to take a look?")
	return b.String()
}

func containsProduct(products []catalog.Product, id string) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}
