package evaluation

import (
	"context"
	"fmt"
	"strings"
)

// HeuristicProvider scores prompts from surface features of the text.
// It is deterministic and needs no network, which makes it the default
// when no API key is configured and the provider used in tests.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the offline scorer.
func NewHeuristicProvider() *HeuristicProvider { return &HeuristicProvider{} }

func (p *HeuristicProvider) Name() string { return "heuristic" }

func (p *HeuristicProvider) EvaluateCriterion(ctx context.Context, promptContent string, criterion Criterion) (*CriterionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score, feedback := p.score(promptContent, criterion.Name)

	suggestion := ""
	if score < improvementScoreThreshold {
		suggestion = fmt.Sprintf("Strengthen %s: %s", strings.ReplaceAll(criterion.Name, "_", " "), criterion.Description)
	}

	return &CriterionResult{
		CriterionName:         criterion.Name,
		Score:                 score,
		Feedback:              feedback,
		ImprovementSuggestion: suggestion,
	}, nil
}

const improvementScoreThreshold = 80

// score derives a 0-100 score from text features relevant to the
// criterion. Crude, but stable and monotonic in prompt quality signals.
func (p *HeuristicProvider) score(content, criterion string) (int, string) {
	lower := strings.ToLower(content)
	words := len(strings.Fields(content))

	base := 40
	if words >= 30 {
		base += 15
	}
	if words >= 100 {
		base += 10
	}

	var signals []string
	bump := func(points int, signal string) {
		base += points
		signals = append(signals, signal)
	}

	switch criterion {
	case "clarity":
		if !strings.Contains(lower, "etc") && !strings.Contains(lower, "and so on") {
			bump(10, "no open-ended filler")
		}
		if strings.Contains(lower, "must") || strings.Contains(lower, "always") || strings.Contains(lower, "never") {
			bump(10, "imperative language")
		}
	case "specificity":
		if strings.ContainsAny(content, "0123456789") {
			bump(10, "concrete parameters")
		}
		if strings.Contains(lower, "example") || strings.Contains(lower, "e.g.") {
			bump(15, "includes examples")
		}
	case "structure":
		if strings.Contains(content, "\n#") || strings.Contains(content, "\n##") {
			bump(15, "uses headers")
		}
		if strings.Contains(content, "\n-") || strings.Contains(content, "\n1.") || strings.Contains(content, "\n*") {
			bump(15, "uses lists")
		}
	case "context_setting":
		if strings.Contains(lower, "you are") || strings.Contains(lower, "your role") || strings.Contains(lower, "act as") {
			bump(20, "role stated")
		}
		if strings.Contains(lower, "audience") || strings.Contains(lower, "background") {
			bump(10, "audience or background noted")
		}
	case "output_format_guidance":
		if strings.Contains(lower, "format") || strings.Contains(lower, "json") || strings.Contains(lower, "markdown") || strings.Contains(lower, "output") {
			bump(20, "format named")
		}
		if strings.Contains(lower, "respond with") || strings.Contains(lower, "return") {
			bump(10, "response shape stated")
		}
	case "constraint_definition":
		if strings.Contains(lower, "do not") || strings.Contains(lower, "don't") || strings.Contains(lower, "avoid") || strings.Contains(lower, "never") {
			bump(20, "explicit prohibitions")
		}
		if strings.Contains(lower, "limit") || strings.Contains(lower, "at most") || strings.Contains(lower, "maximum") || strings.Contains(lower, "only") {
			bump(10, "bounds stated")
		}
	}

	if base > 100 {
		base = 100
	}

	feedback := fmt.Sprintf("Heuristic assessment of %s", criterion)
	if len(signals) > 0 {
		feedback += ": " + strings.Join(signals, "; ")
	} else {
		feedback += ": no positive signals detected"
	}
	return base, feedback
}
