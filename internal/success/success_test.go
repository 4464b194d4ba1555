package success

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/argus-triage/argus-go/internal/event"
)

func TestPredictDecisionTable(t *testing.T) {
	cases := []struct {
		name     string
		attack   string
		code     int
		size     int
		expected bool
	}{
		{"NormalNeverSucceeds", event.TypeNormal, 200, 5000, false},
		{"SQLiBypass", event.TypeSQLi, 200, 100, true},
		{"SQLiErrorLeakNotSuccess", event.TypeSQLi, 500, 100, false},
		{"SQLiBlocked", event.TypeSQLi, 403, 100, false},
		{"TraversalFileReturned", event.TypeTraversal, 200, 2048, true},
		{"TraversalTinyResponse", event.TypeTraversal, 200, 80, false},
		{"TraversalNotFound", event.TypeTraversal, 404, 2048, false},
		{"SSRFReachedTarget", event.TypeSSRF, 200, 0, true},
		{"SSRFBlocked", event.TypeSSRF, 403, 0, false},
		{"XSSConservativeDefault", event.TypeXSS, 200, 1000, false},
		{"CmdInjectionDefault", event.TypeCmdInjection, 200, 1000, false},
		{"GenericAttackDefault", event.TypeAttack, 200, 9000, false},
		{"HPPDefault", event.TypeHPP, 200, 500, false},
	}

	a := NewArbitrator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &event.Event{StatusCode: tc.code, ResponseSize: tc.size}
			assert.Equal(t, tc.expected, a.Predict(ev, tc.attack))
		})
	}
}

func TestBatchPredict(t *testing.T) {
	a := NewArbitrator()
	events := []*event.Event{
		{StatusCode: 200, ResponseSize: 1200},
		{StatusCode: 403},
	}
	got := a.BatchPredict(events, []string{event.TypeSQLi, event.TypeSSRF})
	assert.Equal(t, []bool{true, false}, got)
}
