package evaluation

// Criterion defines one quality dimension a prompt is scored against.
// Adding a criterion here is all that is needed for the evaluator to
// pick it up.
type Criterion struct {
	Name          string
	Description   string
	ScoringRubric string
}

// Criteria is the fixed set of dimensions every evaluation covers.
var Criteria = []Criterion{
	{
		Name:        "clarity",
		Description: "How clear and unambiguous the prompt is",
		ScoringRubric: "90-100: Single possible interpretation, precise language, no ambiguity.\n" +
			"70-89: Mostly clear with minor ambiguities that don't affect execution.\n" +
			"50-69: Several ambiguous instructions that could lead to different outputs.\n" +
			"0-49: Vague, contradictory, or confusing instructions throughout.",
	},
	{
		Name:        "specificity",
		Description: "How detailed and specific the instructions are",
		ScoringRubric: "90-100: Concrete parameters, well-defined scope, specific examples.\n" +
			"70-89: Good detail with some areas that could be more specific.\n" +
			"50-69: Overly broad in key areas, missing important constraints.\n" +
			"0-49: Extremely vague, no concrete parameters or defined scope.",
	},
	{
		Name:        "structure",
		Description: "How well-organized the prompt is",
		ScoringRubric: "90-100: Logical sections, clear flow, well-formatted with headers/lists.\n" +
			"70-89: Good organization with minor flow issues.\n" +
			"50-69: Partially organized but key sections are jumbled.\n" +
			"0-49: No discernible structure, requirements are scattered.",
	},
	{
		Name:        "context_setting",
		Description: "How well background context is provided",
		ScoringRubric: "90-100: Role, audience, domain, and background clearly stated.\n" +
			"70-89: Good context with minor gaps in role or audience definition.\n" +
			"50-69: Some context but missing critical background information.\n" +
			"0-49: No context provided, assumes unstated knowledge.",
	},
	{
		Name:        "output_format_guidance",
		Description: "How clearly the expected output format is defined",
		ScoringRubric: "90-100: Explicit format specified with examples, clear structure.\n" +
			"70-89: Format described but could benefit from examples.\n" +
			"50-69: Vague format guidance, output structure unclear.\n" +
			"0-49: No format specified, output expectations undefined.",
	},
	{
		Name:        "constraint_definition",
		Description: "How well constraints and boundaries are defined",
		ScoringRubric: "90-100: Clear limits, edge case handling, explicit do/don't rules.\n" +
			"70-89: Good constraints with minor gaps in boundary cases.\n" +
			"50-69: Some constraints but key boundaries are undefined.\n" +
			"0-49: No constraints specified, unbounded scope.",
	},
}

// CriterionNames returns the names of all criteria in evaluation order.
func CriterionNames() []string {
	names := make([]string, len(Criteria))
	for i, c := range Criteria {
		names[i] = c.Name
	}
	return names
}
