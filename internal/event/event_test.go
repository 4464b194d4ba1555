package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	t.Run("DefaultsInvalidFields", func(t *testing.T) {
		ev := Event{
			Timestamp:    time.Now(),
			StatusCode:   7,
			ResponseSize: -40,
			Confidence:   1.7,
		}
		ev.Clamp()

		assert.Equal(t, 200, ev.StatusCode)
		assert.Equal(t, 0, ev.ResponseSize)
		assert.Equal(t, 1.0, ev.Confidence)
		assert.Equal(t, TypePending, ev.AttackType)
		assert.NotNil(t, ev.Headers)
		assert.NotNil(t, ev.RuleHits)
	})

	t.Run("LeavesValidFieldsAlone", func(t *testing.T) {
		ev := Event{
			StatusCode:   403,
			ResponseSize: 120,
			Confidence:   0.42,
			AttackType:   TypeSQLi,
			Headers:      map[string]string{"Host": "example.com"},
			RuleHits:     []string{"Classic SQLi"},
		}
		ev.Clamp()

		assert.Equal(t, 403, ev.StatusCode)
		assert.Equal(t, 120, ev.ResponseSize)
		assert.Equal(t, 0.42, ev.Confidence)
		assert.Equal(t, TypeSQLi, ev.AttackType)
	})
}

func TestClassified(t *testing.T) {
	ev := Event{AttackType: TypePending, Confidence: 1.0}
	assert.False(t, ev.Classified(), "pending is never classified")

	ev = Event{AttackType: TypeSQLi, Confidence: 0.1}
	assert.False(t, ev.Classified(), "at threshold means re-classify")

	ev = Event{AttackType: TypeSQLi, Confidence: 0.11}
	assert.True(t, ev.Classified())
}

func TestText(t *testing.T) {
	ev := Event{Method: "POST", URL: "/login", Payload: "' OR 1=1 --"}
	assert.Equal(t, "POST /login ' OR 1=1 --", ev.Text())

	ev = Event{Method: "GET", URL: "/home"}
	assert.Equal(t, "GET /home ", ev.Text())
}
