// Package classifier implements the statistical half of the triage pipeline:
// a TF-IDF character n-gram model with multinomial logistic regression over
// attack categories. It labels the events the deterministic rule engine does
// not recognize.
//
// The trained model lives in an immutable snapshot behind a RWMutex: Train
// builds a fresh snapshot and swaps it in, so concurrent PredictProba calls
// keep reading the snapshot they started with.
package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/argus-triage/argus-go/internal/event"
)

// ErrNotTrained is returned when prediction is attempted before Train (or
// Load) has completed. It is fatal to the calling operation, never defaulted.
var ErrNotTrained = errors.New("classifier not trained")

// snapshot is one immutable trained model: vocabulary, IDF weights, and the
// regression parameters, with classes in sorted order.
type snapshot struct {
	Classes []string    `json:"classes"`
	Vec     *vectorizer `json:"vectorizer"`
	Weights [][]float64 `json:"weights"` // nClasses x nFeatures
	Bias    []float64   `json:"bias"`
}

// Classifier is the shared handle around the current model snapshot.
type Classifier struct {
	mu     sync.RWMutex
	snap   *snapshot
	logger *slog.Logger
}

// New creates an untrained classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Train fits a new model on the labeled events and swaps it in. Callers must
// serialize Train against Train; predictions may run concurrently and keep
// using the previous snapshot until the swap.
func (c *Classifier) Train(events []*event.Event) error {
	if len(events) == 0 {
		return errors.New("train: no events")
	}

	start := time.Now()

	texts := make([]string, len(events))
	labels := make([]string, len(events))
	classSet := make(map[string]bool)
	for i, ev := range events {
		texts[i] = ev.Text()
		labels[i] = ev.AttackType
		classSet[ev.AttackType] = true
	}

	classes := make([]string, 0, len(classSet))
	for cl := range classSet {
		classes = append(classes, cl)
	}
	sort.Strings(classes)
	classIdx := make(map[string]int, len(classes))
	for i, cl := range classes {
		classIdx[cl] = i
	}

	vec := fitVectorizer(texts)
	nFeatures := len(vec.IDF)
	if nFeatures == 0 {
		return errors.New("train: empty vocabulary")
	}

	x := mat.NewDense(len(texts), nFeatures, nil)
	y := make([]int, len(texts))
	for i, text := range texts {
		for idx, w := range vec.transform(text) {
			x.Set(i, idx, w)
		}
		y[i] = classIdx[labels[i]]
	}

	weights, bias := trainSoftmax(x, y, len(classes))

	c.mu.Lock()
	c.snap = &snapshot{Classes: classes, Vec: vec, Weights: weights, Bias: bias}
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("classifier trained",
			"events", len(events),
			"classes", len(classes),
			"features", nFeatures,
			"took", time.Since(start),
		)
	}
	return nil
}

// IsTrained reports whether a model snapshot is available.
func (c *Classifier) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// Classes returns the trained label set in distribution order.
func (c *Classifier) Classes() ([]string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), snap.Classes...), nil
}

// PredictProba returns one probability distribution per input text, in input
// order, each summing to 1 over the trained label set. Unseen text yields
// the bias-only distribution rather than an error.
func (c *Classifier) PredictProba(texts []string) ([][]float64, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = snap.proba(text)
	}
	return out, nil
}

// Predict returns the argmax label per input text.
func (c *Classifier) Predict(texts []string) ([]string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		probs := snap.proba(text)
		best := 0
		for ci, p := range probs {
			if p > probs[best] {
				best = ci
			}
		}
		out[i] = snap.Classes[best]
	}
	return out, nil
}

func (c *Classifier) snapshot() (*snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, ErrNotTrained
	}
	return c.snap, nil
}

// proba scores one text against the snapshot.
func (s *snapshot) proba(text string) []float64 {
	vec := s.Vec.transform(text)
	scores := make([]float64, len(s.Classes))
	for ci := range scores {
		score := s.Bias[ci]
		row := s.Weights[ci]
		for idx, w := range vec {
			score += row[idx] * w
		}
		scores[ci] = score
	}
	softmaxInPlace(scores)
	return scores
}

// validate checks a snapshot loaded from disk for internal consistency.
func (s *snapshot) validate() error {
	if len(s.Classes) == 0 || s.Vec == nil {
		return errors.New("snapshot missing classes or vectorizer")
	}
	if len(s.Weights) != len(s.Classes) || len(s.Bias) != len(s.Classes) {
		return fmt.Errorf("snapshot shape mismatch: %d classes, %d weight rows, %d biases",
			len(s.Classes), len(s.Weights), len(s.Bias))
	}
	for _, row := range s.Weights {
		if len(row) != len(s.Vec.IDF) {
			return fmt.Errorf("snapshot weight row has %d features, vectorizer has %d",
				len(row), len(s.Vec.IDF))
		}
	}
	return nil
}
