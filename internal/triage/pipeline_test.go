package triage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-triage/argus-go/internal/classifier"
	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/rules"
	"github.com/argus-triage/argus-go/internal/success"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, trained bool) *Pipeline {
	t.Helper()
	clf := classifier.New(nil)
	if trained {
		var corpus []*event.Event
		for i := 0; i < 10; i++ {
			corpus = append(corpus,
				&event.Event{
					EventID: fmt.Sprintf("n-%d", i), Timestamp: time.Now(),
					SourceIP: "10.0.0.1", Method: "GET",
					URL: fmt.Sprintf("/home/page%d", i), AttackType: event.TypeNormal,
				},
				&event.Event{
					EventID: fmt.Sprintf("a-%d", i), Timestamp: time.Now(),
					SourceIP: "10.0.0.2", Method: "POST", URL: "/ping",
					Payload: "; cat /etc/shadow | whoami", AttackType: event.TypeCmdInjection,
				},
			)
		}
		require.NoError(t, clf.Train(corpus))
	}
	return NewPipeline(rules.NewEngine(), clf, success.NewArbitrator(), nil, discardLogger())
}

func pendingEvent(url, method, payload string, status, size int) *event.Event {
	ev := &event.Event{
		EventID:      "evt-test",
		Timestamp:    time.Now(),
		SourceIP:     "192.168.1.5",
		Method:       method,
		URL:          url,
		Payload:      payload,
		StatusCode:   status,
		ResponseSize: size,
		AttackType:   event.TypePending,
	}
	ev.Clamp()
	return ev
}

func TestClassifyBatchEmpty(t *testing.T) {
	p := newTestPipeline(t, true)
	_, err := p.ClassifyBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestClassifySQLiScenario(t *testing.T) {
	p := newTestPipeline(t, true)
	ev := pendingEvent("/login", "POST", "' OR 1=1 --", 200, 1200)

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)

	assert.Equal(t, event.TypeSQLi, ev.AttackType)
	assert.Equal(t, 1.0, ev.Confidence)
	assert.Contains(t, ev.RuleHits, "Classic SQLi")
	assert.True(t, ev.IsSuccessful, "SQLi with status 200 is a bypass")
}

func TestClassifyHPPScenario(t *testing.T) {
	p := newTestPipeline(t, true)
	ev := pendingEvent("/api/users?id=1&id=2", "GET", "", 200, 90)

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)

	assert.Equal(t, event.TypeHPP, ev.AttackType)
	assert.Equal(t, []string{rules.DuplicateParams}, ev.RuleHits)
	assert.Equal(t, 1.0, ev.Confidence)
}

func TestClassifyTieBreakOrder(t *testing.T) {
	p := newTestPipeline(t, true)
	// Matches SSRF (loopback) and SQLi; SSRF is earlier in the declared order.
	ev := pendingEvent("/webhook?url=http://127.0.0.1/admin", "POST", "' OR 1=1", 200, 50)

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)

	assert.Equal(t, event.TypeSSRF, ev.AttackType)
	// Hits from every matched category are kept, in category order.
	assert.Equal(t, []string{"Loopback Access", "Classic SQLi"}, ev.RuleHits)
	assert.True(t, ev.IsSuccessful, "SSRF with 200 reached its target")
}

func TestRulePrecedenceOverClassifier(t *testing.T) {
	p := newTestPipeline(t, true)
	ev := pendingEvent("/download?file=../../etc/passwd", "GET", "", 404, 0)

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)

	assert.Equal(t, event.TypeTraversal, ev.AttackType)
	assert.Equal(t, 1.0, ev.Confidence, "rule hits always yield confidence 1.0")
	assert.False(t, ev.IsSuccessful)
}

func TestStatisticalFallback(t *testing.T) {
	p := newTestPipeline(t, true)

	t.Run("BenignTraffic", func(t *testing.T) {
		ev := pendingEvent("/home/page2", "GET", "", 200, 500)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		require.NoError(t, err)

		assert.Equal(t, event.TypeNormal, ev.AttackType)
		assert.Greater(t, ev.Confidence, 0.0)
		assert.LessOrEqual(t, ev.Confidence, 1.0)
		assert.Empty(t, ev.RuleHits)
		assert.False(t, ev.IsSuccessful)
	})

	t.Run("UnrecognizedAttack", func(t *testing.T) {
		// Command injection has no rule patterns, so only the statistical
		// stage can flag it, and only with the generic label.
		ev := pendingEvent("/ping", "POST", "; cat /etc/shadow | whoami", 200, 300)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		require.NoError(t, err)

		assert.Equal(t, event.TypeAttack, ev.AttackType)
		assert.False(t, ev.IsSuccessful, "generic Attack label has no success rule")
	})
}

func TestClassifyNotTrained(t *testing.T) {
	p := newTestPipeline(t, false)

	t.Run("RuleHitsNeedNoModel", func(t *testing.T) {
		ev := pendingEvent("/login", "POST", "' OR 1=1 --", 200, 100)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		require.NoError(t, err)
		assert.Equal(t, event.TypeSQLi, ev.AttackType)
	})

	t.Run("FallbackPropagatesNotTrained", func(t *testing.T) {
		ev := pendingEvent("/home", "GET", "", 200, 100)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		assert.ErrorIs(t, err, classifier.ErrNotTrained)
	})
}

func TestClassifyIdempotent(t *testing.T) {
	p := newTestPipeline(t, true)
	ev := pendingEvent("/login", "POST", "' OR 1=1 --", 200, 1200)

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)
	first := *ev

	_, err = p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)

	assert.Equal(t, first.AttackType, ev.AttackType)
	assert.Equal(t, first.Confidence, ev.Confidence)
	assert.Equal(t, first.RuleHits, ev.RuleHits)
	assert.Equal(t, first.IsSuccessful, ev.IsSuccessful)
}

func TestClassifyPreLabeledPassThrough(t *testing.T) {
	p := newTestPipeline(t, true)
	ev := pendingEvent("/login", "POST", "' OR 1=1 --", 200, 1200)
	ev.AttackType = event.TypeXSS // deliberately "wrong" but confident
	ev.Confidence = 0.9

	_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
	require.NoError(t, err)
	assert.Equal(t, event.TypeXSS, ev.AttackType, "confident labels pass through unchanged")
	assert.Equal(t, 0.9, ev.Confidence)
}

func TestClassifyBatchInvariants(t *testing.T) {
	p := newTestPipeline(t, true)
	batch := []*event.Event{
		pendingEvent("/login", "POST", "' OR 1=1 --", 200, 1200),
		pendingEvent("/home/page1", "GET", "", 200, 400),
		pendingEvent("/download?file=../../etc/passwd", "GET", "", 200, 4096),
		pendingEvent("/api/users?id=1&id=2", "GET", "", 403, 0),
	}

	_, err := p.ClassifyBatch(context.Background(), batch)
	require.NoError(t, err)

	for _, ev := range batch {
		assert.NotEmpty(t, ev.AttackType)
		assert.NotEqual(t, event.TypePending, ev.AttackType)
		assert.GreaterOrEqual(t, ev.Confidence, 0.0)
		assert.LessOrEqual(t, ev.Confidence, 1.0)
	}
}

func TestExplain(t *testing.T) {
	p := newTestPipeline(t, true)

	t.Run("RuleBacked", func(t *testing.T) {
		ev := pendingEvent("/login", "POST", "' OR 1=1 -- this payload is longer than fifty characters total", 200, 1200)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		require.NoError(t, err)

		expl := p.Explain(context.Background(), ev)
		assert.Equal(t, ev.EventID, expl.EventID)
		assert.Equal(t, event.TypeSQLi, expl.AttackType)
		assert.Contains(t, expl.RuleHits[event.TypeSQLi], "Classic SQLi")
		assert.Len(t, expl.PayloadSnippet, 50)
		assert.Contains(t, expl.Factors, "Matches known attack pattern")
		assert.Contains(t, expl.Factors, "Response code 200 consistent with result")
	})

	t.Run("HeuristicOnly", func(t *testing.T) {
		ev := pendingEvent("/home/page1", "GET", "", 404, 0)
		_, err := p.ClassifyBatch(context.Background(), []*event.Event{ev})
		require.NoError(t, err)

		expl := p.Explain(context.Background(), ev)
		assert.Empty(t, expl.RuleHits)
		assert.Contains(t, expl.Factors, "Heuristic text analysis")
		assert.Contains(t, expl.Factors, "Response code 404 consistent with result")
	})
}
