// Package triage arbitrates between the rule engine and the statistical
// classifier to produce one final label, confidence, and success verdict per
// event. Rules win outright: a rule hit is treated as ground truth.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/argus-triage/argus-go/internal/classifier"
	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/rules"
	"github.com/argus-triage/argus-go/internal/success"
)

// ErrEmptyBatch is returned when a batch contains no events to classify,
// e.g. an upload where every row was malformed. Surfaced to the caller,
// never treated as success.
var ErrEmptyBatch = errors.New("empty batch")

// attackThreshold is the aggregate attack probability above which the
// statistical fallback labels an event as a generic Attack.
const attackThreshold = 0.5

// Pipeline orchestrates classification: rule engine first, statistical
// classifier for whatever the rules do not recognize, then the success
// arbitrator. Safe for concurrent use; per-event work shares no state.
type Pipeline struct {
	rules   *rules.Engine
	clf     *classifier.Classifier
	arb     *success.Arbitrator
	deep    *DeepAnalyzer
	logger  *slog.Logger
	workers int
}

// NewPipeline wires a classification pipeline. deep may be nil; everything
// else is required.
func NewPipeline(engine *rules.Engine, clf *classifier.Classifier, arb *success.Arbitrator, deep *DeepAnalyzer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		rules:   engine,
		clf:     clf,
		arb:     arb,
		deep:    deep,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// ClassifyBatch enriches the events in place and returns them. Events
// already carrying a confident label pass through untouched, so the call is
// idempotent. Classification is CPU-bound and independent per event, so the
// batch fans out across a bounded worker group.
//
// Returns ErrEmptyBatch for a zero-length batch and classifier.ErrNotTrained
// when the statistical fallback is needed but no model is available.
func (p *Pipeline) ClassifyBatch(ctx context.Context, events []*event.Event) ([]*event.Event, error) {
	if len(events) == 0 {
		return nil, ErrEmptyBatch
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, ev := range events {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return p.classify(ev)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}

// classify resolves one event's label, confidence, rule hits, and success.
func (p *Pipeline) classify(ev *event.Event) error {
	if ev.Classified() {
		return nil
	}

	hits := p.rules.Analyze(ev)
	matched := p.rules.Matched(hits)

	if len(matched) > 0 {
		// First matched category in declared order wins; rule hits from every
		// matched category are kept for the analyst.
		ev.AttackType = matched[0]
		ev.Confidence = 1.0
		flat := []string{}
		for _, cat := range matched {
			flat = append(flat, hits[cat]...)
		}
		ev.RuleHits = flat
	} else {
		label, conf, err := p.statistical(ev)
		if err != nil {
			return err
		}
		ev.AttackType = label
		ev.Confidence = conf
		ev.RuleHits = []string{}
	}

	ev.IsSuccessful = p.arb.Predict(ev, ev.AttackType)
	return nil
}

// statistical runs the trained classifier in the binary attack-vs-normal
// framing: confidence is the peak of the distribution, and the aggregate
// probability of the non-Normal classes decides between the generic Attack
// label and Normal.
func (p *Pipeline) statistical(ev *event.Event) (string, float64, error) {
	probs, err := p.clf.PredictProba([]string{ev.Text()})
	if err != nil {
		return "", 0, fmt.Errorf("statistical fallback: %w", err)
	}
	classes, err := p.clf.Classes()
	if err != nil {
		return "", 0, err
	}

	dist := probs[0]
	var maxProb, normalProb float64
	for i, prob := range dist {
		if prob > maxProb {
			maxProb = prob
		}
		if classes[i] == event.TypeNormal {
			normalProb = prob
		}
	}

	label := event.TypeNormal
	if 1-normalProb > attackThreshold {
		label = event.TypeAttack
	}
	return label, maxProb, nil
}

// Explanation is the read-only analyst projection of a classified event.
type Explanation struct {
	EventID        string              `json:"event_id"`
	AttackType     string              `json:"attack_type"`
	Confidence     float64             `json:"confidence"`
	RuleHits       map[string][]string `json:"rule_hits"`
	PayloadSnippet string              `json:"payload_snippet"`
	Factors        []string            `json:"factors"`
	DeepAnalysis   string              `json:"deep_analysis,omitempty"`
}

// Explain re-runs the rule engine for a per-category hit breakdown and
// derives the contributing-factor text deterministically from whether rules
// fired and from the response status. If a deep analyzer is configured, its
// narrative is attached; the verdict itself never depends on it.
func (p *Pipeline) Explain(ctx context.Context, ev *event.Event) *Explanation {
	hits := p.rules.Analyze(ev)

	snippet := ev.Payload
	if len(snippet) > 50 {
		snippet = snippet[:50]
	}

	patternFactor := "Heuristic text analysis"
	if len(hits) > 0 {
		patternFactor = "Matches known attack pattern"
	}

	expl := &Explanation{
		EventID:        ev.EventID,
		AttackType:     ev.AttackType,
		Confidence:     ev.Confidence,
		RuleHits:       hits,
		PayloadSnippet: snippet,
		Factors: []string{
			patternFactor,
			fmt.Sprintf("Response code %d consistent with result", ev.StatusCode),
		},
	}

	if p.deep != nil {
		narrative, err := p.deep.Narrate(ctx, ev, expl)
		if err != nil {
			p.logger.Warn("deep analysis unavailable", "event_id", ev.EventID, "err", err)
		} else {
			expl.DeepAnalysis = narrative
		}
	}
	return expl
}
