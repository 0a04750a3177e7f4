package evaluation

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
)

// Result is the fan-in aggregate of all criterion assessments.
type Result struct {
	CriterionResults []*CriterionResult
	OverallScore     float64
	// ErrorMessage is set when every criterion failed; the evaluation
	// is then recorded as failed rather than completed.
	ErrorMessage string
}

// Evaluator fans a prompt out to the provider once per criterion and
// aggregates the verdicts.
type Evaluator struct {
	provider    Provider
	concurrency int
}

// NewEvaluator wraps a provider. concurrency bounds in-flight provider
// calls; values below 1 mean one call per criterion at once.
func NewEvaluator(provider Provider, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = len(Criteria)
	}
	return &Evaluator{provider: provider, concurrency: concurrency}
}

// Run evaluates promptContent against every criterion in parallel.
// A provider error on one criterion does not abort the run: that
// criterion is recorded with score 0 and the failure in its feedback.
func (e *Evaluator) Run(ctx context.Context, promptContent string) *Result {
	results := make([]*CriterionResult, len(Criteria))

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for i, criterion := range Criteria {
		wg.Add(1)
		go func(i int, criterion Criterion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := e.provider.EvaluateCriterion(ctx, promptContent, criterion)
			if err != nil {
				log.Printf("Criterion %s evaluation failed: %v", criterion.Name, err)
				result = &CriterionResult{
					CriterionName: criterion.Name,
					Score:         0,
					Feedback:      fmt.Sprintf("Evaluation failed: %v", err),
				}
			}
			results[i] = result
		}(i, criterion)
	}
	wg.Wait()

	return aggregate(results)
}

// aggregate computes the overall score as the mean of all criterion
// scores, rounded to 2 decimals. Failed criteria count as zero; if no
// criterion succeeded, the result carries an error message instead.
func aggregate(results []*CriterionResult) *Result {
	if len(results) == 0 {
		return &Result{ErrorMessage: "No criteria were evaluated"}
	}

	anySucceeded := false
	sum := 0
	for _, r := range results {
		sum += r.Score
		if r.Score > 0 || !strings.Contains(strings.ToLower(r.Feedback), "failed") {
			anySucceeded = true
		}
	}
	if !anySucceeded {
		return &Result{CriterionResults: results, ErrorMessage: "All criteria evaluations failed"}
	}

	overall := float64(sum) / float64(len(results))
	return &Result{
		CriterionResults: results,
		OverallScore:     math.Round(overall*100) / 100,
	}
}
