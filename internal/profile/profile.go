// Package profile defines the user profile shape shared by the
// recommendation agents. The profile arrives inside task payloads; the core
// never looks at it, each agent decodes it as part of its own input.
package profile

// Profile describes the shopper a recommendation task is for.
type Profile struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Age             int            `json:"age"`
	Preferences     []string       `json:"preferences"`
	PurchaseHistory []string       `json:"purchaseHistory"`
	BudgetRange     []float64      `json:"budgetRange"`
	BrowsingHistory []string       `json:"browsingHistory"`
	Demographics    map[string]any `json:"demographics"`
}

// Budget returns the profile's budget window, defaulting to 0..1000 when the
// submitted range is missing or malformed.
func (p Profile) Budget() (min, max float64) {
	if len(p.BudgetRange) == 2 && p.BudgetRange[0] <= p.BudgetRange[1] {
		return p.BudgetRange[0], p.BudgetRange[1]
	}
	return 0, 1000
}
