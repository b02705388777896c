// Package questioner implements the 'questioner' agent: given a shopper
// profile and an initial recommendation set, it produces the clarifying
// questions, concerns, and follow-ups a consultative flow would ask next.
package questioner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/profile"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// New creates the questioner agent.
func New() *Module {
	return &Module{}
}

// Name implements agent.Handler.
func (m *Module) Name() string { return "questioner" }

// Register registers the handler with the gateway registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(m)
}

// Input defines the payload shape the questioner agent accepts. Context
// carries the upstream browsing result.
type Input struct {
	User    profile.Profile `json:"user"`
	Context Context         `json:"context"`
}

// Context is the slice of the browsing result the questioner reads.
type Context struct {
	RecommendedProducts []catalog.Product `json:"recommended_products"`
}

// Question is one clarifying question with its trigger context.
type Question struct {
	Type     string `json:"type"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Priority string `json:"priority"`
}

// Concern flags a potential mismatch between the recommendations and the
// shopper.
type Concern struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// FollowUp is a scenario to offer after the main questions.
type FollowUp struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Options     []string `json:"options,omitempty"`
	Relevance   string   `json:"relevance,omitempty"`
}

// Strategy describes how the conversation should be conducted.
type Strategy struct {
	Approach             string `json:"approach"`
	Tone                 string `json:"tone"`
	MaxQuestions         int    `json:"max_questions"`
	PersonalizationLevel string `json:"personalization_level"`
}

// Output is the questioner agent's result envelope.
type Output struct {
	ClarificationQuestions []Question `json:"clarification_questions"`
	PotentialConcerns      []Concern  `json:"potential_concerns"`
	FollowUpScenarios      []FollowUp `json:"follow_up_scenarios"`
	QuestionPriority       []string   `json:"question_priority"`
	InteractionStrategy    Strategy   `json:"interaction_strategy"`
}

// questionTemplates holds the phrasing banks, keyed by question type.
var questionTemplates = map[string][]string{
	"budget_clarification": {
		"What's your preferred price range for this type of product?",
		"Are you looking for budget-friendly or premium options?",
		"How much are you willing to spend on this item?",
	},
	"usage_context": {
		"How do you plan to use this product?",
		"Is this for personal use or professional purposes?",
		"Where will you primarily use this item?",
	},
	"experience_level": {
		"Are you a beginner or experienced with this type of product?",
		"Do you prefer simple or advanced features?",
		"How familiar are you with similar products?",
	},
}

// Handle analyzes the recommendations and produces the questioning plan.
func (m *Module) Handle(ctx context.Context, t task.Task) (any, error) {
	logger := ctxlog.FromContext(ctx).With("agent", m.Name())

	var in Input
	if err := agent.DecodePayload(t, &in); err != nil {
		return nil, err
	}
	products := in.Context.RecommendedProducts
	logger.Debug("Analyzing recommendations for clarification needs.", "product_count", len(products))

	questions := m.targetedQuestions(in.User, products)
	out := &Output{
		ClarificationQuestions: questions,
		PotentialConcerns:      m.concerns(in.User, products),
		FollowUpScenarios:      m.followUps(products),
		QuestionPriority:       prioritize(questions),
		InteractionStrategy:    strategyFor(in.User),
	}

	logger.Debug("Generated clarification questions.", "question_count", len(questions))
	return out, nil
}

func pickTemplate(kind string) string {
	bank := questionTemplates[kind]
	return bank[rand.IntN(len(bank))]
}

// targetedQuestions builds questions triggered by the shape of the
// recommendation set: wide budgets, multiple categories, complex products.
func (m *Module) targetedQuestions(user profile.Profile, products []catalog.Product) []Question {
	var questions []Question
	if len(products) == 0 {
		return questions
	}

	budgetMin, budgetMax := user.Budget()
	if budgetMax-budgetMin > 500 {
		questions = append(questions, Question{
			Type:     "budget_clarification",
			Question: pickTemplate("budget_clarification"),
			Context:  fmt.Sprintf("Your budget range is $%.0f-$%.0f", budgetMin, budgetMax),
			Priority: "high",
		})
	}

	categories := distinctCategories(products)
	if len(categories) > 2 {
		questions = append(questions, Question{
			Type:     "feature_preferences",
			Question: fmt.Sprintf("I see recommendations across %s. Which category interests you most?", strings.Join(categories, ", ")),
			Context:  "Multiple product categories identified",
			Priority: "high",
		})
	}

	questions = append(questions, Question{
		Type:     "usage_context",
		Question: pickTemplate("usage_context"),
		Context:  "Recommended: " + products[0].Name,
		Priority: "medium",
	})

	if complex := complexProducts(products); len(complex) > 0 {
		questions = append(questions, Question{
			Type:     "experience_level",
			Question: pickTemplate("experience_level"),
			Context:  "Complex product detected: " + complex[0].Name,
			Priority: "medium",
		})
	}

	return questions
}

// concerns checks for budget pressure and feature complexity.
func (m *Module) concerns(user profile.Profile, products []catalog.Product) []Concern {
	var concerns []Concern
	if len(products) == 0 {
		return concerns
	}

	total := 0.0
	for _, p := range products {
		total += p.Price
	}
	avgPrice := total / float64(len(products))
	_, budgetMax := user.Budget()

	if avgPrice > budgetMax*0.8 {
		concerns = append(concerns, Concern{
			Type:       "budget_concern",
			Message:    "The recommended products are near your budget limit.",
			Suggestion: "Would you like to see more budget-friendly alternatives?",
		})
	}

	if user.Age > 50 {
		for _, p := range products {
			if len(p.Features) > 4 {
				concerns = append(concerns, Concern{
					Type:       "complexity_concern",
					Message:    "Some recommended products have many features.",
					Suggestion: "Would you prefer simpler, more straightforward options?",
				})
				break
			}
		}
	}

	return concerns
}

// followUps offers accessories, alternatives, and timing scenarios.
func (m *Module) followUps(products []catalog.Product) []FollowUp {
	var followUps []FollowUp
	if len(products) == 0 {
		return followUps
	}

	if products[0].Category == "Electronics" {
		followUps = append(followUps, FollowUp{
			Type:        "accessory_suggestion",
			Message:     fmt.Sprintf("For your %s, would you also need any accessories?", products[0].Name),
			Suggestions: []string{"Cases", "Cables", "Extended warranty"},
		})
	}

	followUps = append(followUps,
		FollowUp{
			Type:    "alternatives",
			Message: "Would you like to see alternative options in different price ranges?",
			Options: []string{"Lower price", "Higher end", "Different brand"},
		},
		FollowUp{
			Type:      "timing",
			Message:   "When are you planning to make this purchase?",
			Relevance: "For timing deals and availability",
		},
	)

	return followUps
}

// prioritize orders question text high, then medium, then low.
func prioritize(questions []Question) []string {
	var out []string
	for _, priority := range []string{"high", "medium", "low"} {
		for _, q := range questions {
			if q.Priority == priority {
				out = append(out, q.Question)
			}
		}
	}
	return out
}

// strategyFor adapts the conversation style to the shopper's age.
func strategyFor(user profile.Profile) Strategy {
	strategy := Strategy{
		Approach:             "consultative",
		Tone:                 "friendly",
		MaxQuestions:         3,
		PersonalizationLevel: "high",
	}
	switch {
	case user.Age > 60:
		strategy.Tone = "patient"
		strategy.MaxQuestions = 2
	case user.Age < 25:
		strategy.Approach = "casual"
		strategy.Tone = "enthusiastic"
	}
	return strategy
}

func distinctCategories(products []catalog.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			out = append(out, p.Category)
		}
	}
	return out
}

// complexProducts are the ones that warrant an experience-level question.
func complexProducts(products []catalog.Product) []catalog.Product {
	var out []catalog.Product
	for _, p := range products {
		if hasTag(p, "gaming") || hasTag(p, "professional") {
			out = append(out, p)
		}
	}
	return out
}

func hasTag(p catalog.Product, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
