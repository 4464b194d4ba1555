// Package success estimates whether a detected attack achieved its effect,
// from the response status and size alone. It is a fixed decision table, not
// a learned model: absence of evidence is treated as failure.
package success

import "github.com/argus-triage/argus-go/internal/event"

// Arbitrator applies the per-category success heuristics. Stateless; the
// zero value is ready to use and calls are independent per event.
type Arbitrator struct{}

// NewArbitrator returns a success arbitrator.
func NewArbitrator() *Arbitrator { return &Arbitrator{} }

// Predict decides whether the attack the event was classified as succeeded.
// predictedType is the resolved attack category, which may differ from the
// label stored on the event during re-classification.
func (a *Arbitrator) Predict(ev *event.Event, predictedType string) bool {
	code := ev.StatusCode
	size := ev.ResponseSize

	// No attack, nothing to succeed.
	if predictedType == event.TypeNormal {
		return false
	}

	switch predictedType {
	case event.TypeSQLi:
		// A 500 is an error leak, not a bypass. Debatable heuristic,
		// kept as designed.
		if code == 500 {
			return false
		}
		if code == 200 {
			return true
		}
	case event.TypeTraversal:
		// File content came back.
		if code == 200 && size > 100 {
			return true
		}
	case event.TypeSSRF:
		// The request reached its target.
		if code == 200 {
			return true
		}
	}

	// Explicitly blocked by the WAF.
	if code == 403 {
		return false
	}

	return false
}

// BatchPredict applies Predict pairwise over events and their predicted
// categories. Inputs must be the same length.
func (a *Arbitrator) BatchPredict(events []*event.Event, predictedTypes []string) []bool {
	out := make([]bool, len(events))
	for i, ev := range events {
		out[i] = a.Predict(ev, predictedTypes[i])
	}
	return out
}
