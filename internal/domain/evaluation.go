package domain

// EvaluationResult is the score of one artifact. Composite evaluators fill
// Individual and Weights with their members' results in member order.
type EvaluationResult struct {
	// Evaluator names the evaluator that produced the result.
	Evaluator string `json:"evaluator,omitempty"`

	// Score is in [0,1].
	Score float64 `json:"score"`

	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Improvements holds human-readable deltas against the baseline, keyed like Metrics.
	Improvements map[string]string `json:"improvements,omitempty"`

	Individual []EvaluationResult `json:"individual_results,omitempty"`
	Weights    []float64          `json:"weights,omitempty"`

	// Error annotates a result whose evaluator failed; Score is 0 in that case.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the evaluator that produced r failed.
func (r EvaluationResult) Failed() bool {
	return r.Error != ""
}

// Clone returns a deep copy of r.
func (r EvaluationResult) Clone() EvaluationResult {
	c := r
	if r.Metrics != nil {
		c.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			c.Metrics[k] = v
		}
	}
	if r.Improvements != nil {
		c.Improvements = make(map[string]string, len(r.Improvements))
		for k, v := range r.Improvements {
			c.Improvements[k] = v
		}
	}
	if r.Individual != nil {
		c.Individual = make([]EvaluationResult, len(r.Individual))
		for i, sub := range r.Individual {
			c.Individual[i] = sub.Clone()
		}
	}
	if r.Weights != nil {
		c.Weights = append([]float64(nil), r.Weights...)
	}
	return c
}
