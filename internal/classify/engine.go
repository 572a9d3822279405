// Package classify provides a YAML-based keyword engine for expense categorization.
package classify

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

//go:embed keywords.yaml
var embeddedKeywords []byte

const (
	// maxConfidence caps the heuristic score; classification is never
	// reported as certain.
	maxConfidence = 0.98

	matchWeight  = 0.7
	jitterWeight = 0.3
)

// Rule maps one category to its keyword list.
//
// Rules should be created via YAML loading (NewEngine, LoadEmbedded,
// LoadFromFile), which validates every invariant:
//   - Category must be a valid domain.Category
//   - No category may appear twice
//   - Every rule except the Uncategorized fallback needs at least one keyword
//
// Fields are exported for YAML unmarshaling. Direct struct construction
// bypasses validation.
type Rule struct {
	Category domain.Category `yaml:"category"`
	Keywords []string        `yaml:"keywords"`
}

// RuleSet represents the top-level YAML structure
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Engine matches expense text against an ordered keyword table.
// File order is evaluation order; the first matching category wins,
// so earlier categories take priority over later ones.
type Engine struct {
	rules []Rule
	rng   *rand.Rand
}

// NewEngine creates a classification engine from YAML data.
// The rand source drives confidence jitter only; classification itself
// is deterministic.
func NewEngine(rulesData []byte, rng *rand.Rand) (*Engine, error) {
	if rng == nil {
		return nil, fmt.Errorf("rand source cannot be nil")
	}

	var ruleSet RuleSet
	if err := yaml.Unmarshal(rulesData, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML keyword rules (check syntax, indentation, and field names): %w", err)
	}

	if len(ruleSet.Rules) == 0 {
		return nil, fmt.Errorf("keyword rules cannot be empty")
	}

	seen := make(map[domain.Category]struct{}, len(ruleSet.Rules))
	for i, rule := range ruleSet.Rules {
		if !domain.ValidateCategory(rule.Category) {
			return nil, fmt.Errorf("rule %d: invalid category %q", i, rule.Category)
		}

		if _, dup := seen[rule.Category]; dup {
			return nil, fmt.Errorf("rule %d: duplicate category %q", i, rule.Category)
		}
		seen[rule.Category] = struct{}{}

		// Uncategorized is the fallback and carries no keywords
		if rule.Category != domain.CategoryUncategorized && len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): keyword list cannot be empty", i, rule.Category)
		}

		for j, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return nil, fmt.Errorf("rule %d (%s): keyword %d is empty", i, rule.Category, j)
			}
		}
	}

	return &Engine{
		rules: ruleSet.Rules,
		rng:   rng,
	}, nil
}

// LoadEmbedded loads the embedded keywords.yaml file
func LoadEmbedded(rng *rand.Rand) (*Engine, error) {
	engine, err := NewEngine(embeddedKeywords, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded keyword rules (possible binary corruption): %w", err)
	}
	return engine, nil
}

// LoadFromFile loads keyword rules from a filesystem path
func LoadFromFile(path string, rng *rand.Rand) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword rules file: %w", err)
	}
	engine, err := NewEngine(data, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword rules from %q: %w", path, err)
	}
	return engine, nil
}

// normalize lowercases and joins the classifier inputs
func normalize(description, vendor string) string {
	return strings.ToLower(strings.TrimSpace(description + " " + vendor))
}

// Classify returns the first category whose keyword list has a substring
// match in the lowercased description+vendor text. Deterministic and pure:
// the same inputs always produce the same category. Returns Uncategorized
// when nothing matches.
func (e *Engine) Classify(description, vendor string) domain.Category {
	text := normalize(description, vendor)

	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category
			}
		}
	}

	return domain.CategoryUncategorized
}

// Confidence scores how strongly the text supports the given category.
// The score is the matched-keyword fraction weighted at 0.7 plus jitter
// in [0, 0.3), capped at 0.98. Zero when the category has no keywords or
// nothing matched. Heuristic only, not a calibrated probability.
func (e *Engine) Confidence(description, vendor string, category domain.Category) float64 {
	var keywords []string
	for _, rule := range e.rules {
		if rule.Category == category {
			keywords = rule.Keywords
			break
		}
	}
	if len(keywords) == 0 {
		return 0
	}

	text := normalize(description, vendor)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	score := float64(matched)/float64(len(keywords))*matchWeight + e.rng.Float64()*jitterWeight
	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}

// ReclassifyBatch re-runs classification over every Uncategorized expense
// and returns a new slice. Expenses that already carry a category pass
// through unchanged; reclassification is one-directional and never
// downgrades a categorized expense back to Uncategorized.
func (e *Engine) ReclassifyBatch(expenses []domain.Expense) []domain.Expense {
	result := make([]domain.Expense, len(expenses))
	for i, exp := range expenses {
		if exp.Category == domain.CategoryUncategorized {
			exp.Category = e.Classify(exp.Description, exp.Vendor)
		}
		result[i] = exp
	}
	return result
}

// GetRules returns a copy of the rules in evaluation order
func (e *Engine) GetRules() []Rule {
	result := make([]Rule, len(e.rules))
	for i, rule := range e.rules {
		result[i] = Rule{
			Category: rule.Category,
			Keywords: append([]string(nil), rule.Keywords...),
		}
	}
	return result
}
