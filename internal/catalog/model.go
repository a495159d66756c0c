package catalog

import "fmt"

// Category groups challenges by environmental theme.
type Category string

const (
	CategoryWaste        Category = "Waste"
	CategoryEnergy       Category = "Energy"
	CategoryWater        Category = "Water"
	CategoryBiodiversity Category = "Biodiversity"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWaste, CategoryEnergy, CategoryWater, CategoryBiodiversity:
		return true
	default:
		return false
	}
}

// Challenge is a static, completable eco action.
type Challenge struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Points      int      `json:"ecoPoints" yaml:"ecoPoints"`
	Category    Category `json:"category" yaml:"category"`
}

// RuleKind identifies how a badge is unlocked.
type RuleKind string

const (
	RuleFirstCompletion    RuleKind = "first_completion"
	RuleCompletionCount    RuleKind = "completion_count"
	RulePointsThreshold    RuleKind = "points_threshold"
	RuleCategoryCompletion RuleKind = "category_completion"
)

// UnlockRule is a predicate over an account's progress.
type UnlockRule struct {
	Kind      RuleKind `json:"kind" yaml:"kind"`
	Threshold int      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Category  Category `json:"category,omitempty" yaml:"category,omitempty"`
}

// Progress is the slice of account state unlock rules look at.
type Progress struct {
	Completions int
	Points      int
	Categories  map[Category]int
}

// SatisfiedBy reports whether p meets the rule.
func (r UnlockRule) SatisfiedBy(p Progress) bool {
	switch r.Kind {
	case RuleFirstCompletion:
		return p.Completions >= 1
	case RuleCompletionCount:
		return p.Completions >= r.Threshold
	case RulePointsThreshold:
		return p.Points >= r.Threshold
	case RuleCategoryCompletion:
		return p.Categories[r.Category] >= 1
	default:
		return false
	}
}

func (r UnlockRule) validate() error {
	switch r.Kind {
	case RuleFirstCompletion:
		return nil
	case RuleCompletionCount, RulePointsThreshold:
		if r.Threshold < 1 {
			return fmt.Errorf("rule %s needs a positive threshold", r.Kind)
		}
		return nil
	case RuleCategoryCompletion:
		if !r.Category.Valid() {
			return fmt.Errorf("rule %s has unknown category %q", r.Kind, r.Category)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

// Badge is a milestone granted when its rule is satisfied.
type Badge struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Icon        string     `json:"icon" yaml:"icon"`
	Rule        UnlockRule `json:"unlockRule" yaml:"rule"`
}

// Topic is a subject a lesson can be generated for.
type Topic struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}
