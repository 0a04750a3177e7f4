package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CriterionResult is a single criterion's assessment of a prompt.
type CriterionResult struct {
	CriterionName         string `json:"criterion_name"`
	Score                 int    `json:"score"`
	Feedback              string `json:"feedback"`
	ImprovementSuggestion string `json:"improvement_suggestion"`
}

// Provider scores one criterion at a time. Implementations must be safe
// for concurrent use: the evaluator fans out across criteria.
type Provider interface {
	EvaluateCriterion(ctx context.Context, promptContent string, criterion Criterion) (*CriterionResult, error)
	Name() string
}

// resultSchema constrains what a model may return for a criterion.
const resultSchema = `{
	"type": "object",
	"required": ["score", "feedback"],
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"improvement_suggestion": {"type": "string"}
	}
}`

var resultSchemaLoader = gojsonschema.NewStringLoader(resultSchema)

// parseResult extracts a CriterionResult from raw model output. Fenced
// code blocks are unwrapped first, then the JSON is validated against
// resultSchema before decoding.
func parseResult(criterionName, raw string) (*CriterionResult, error) {
	text := stripFences(raw)

	validation, err := gojsonschema.Validate(resultSchemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("response violates result schema: %s", validation.Errors()[0].String())
	}

	var parsed struct {
		Score                 int    `json:"score"`
		Feedback              string `json:"feedback"`
		ImprovementSuggestion string `json:"improvement_suggestion"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &CriterionResult{
		CriterionName:         criterionName,
		Score:                 clampScore(parsed.Score),
		Feedback:              parsed.Feedback,
		ImprovementSuggestion: parsed.ImprovementSuggestion,
	}, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
	} else {
		return text
	}
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// evaluationSystemPrompt instructs the model how to respond.
const evaluationSystemPrompt = "You are a prompt quality evaluator. Evaluate the given prompt against " +
	"a specific criterion. Return your assessment as JSON with these fields: " +
	`"score" (integer 0-100), "feedback" (detailed evaluation), ` +
	`"improvement_suggestion" (actionable suggestion if score < 80, empty string otherwise).`

// buildUserMessage renders the per-criterion instruction block.
func buildUserMessage(promptContent string, criterion Criterion) string {
	return fmt.Sprintf(
		"## Criterion: %s\n## Description: %s\n## Scoring Rubric:\n%s\n\n## Prompt to Evaluate:\n%s\n\n"+
			`Return ONLY valid JSON: {"score": <int>, "feedback": "<string>", "improvement_suggestion": "<string>"}`,
		criterion.Name, criterion.Description, criterion.ScoringRubric, promptContent)
}
