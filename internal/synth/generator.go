// Package synth generates labeled synthetic access-log events for startup
// training, demos, and tests. Payload templates cover every attack category
// the system knows, plus benign traffic.
package synth

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/argus-triage/argus-go/internal/event"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	"Mozilla/5.0 (X11; Linux x86_64)",
	"Python-urllib/3.8",
	"curl/7.68.0",
}

// Generator produces synthetic events with a deterministic seed, so a given
// seed always yields the same corpus.
type Generator struct {
	rng      *rand.Rand
	baseTime time.Time
}

// NewGenerator creates a seeded generator. Timestamps start one day in the
// past and walk forward.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		baseTime: time.Now().Add(-24 * time.Hour),
	}
}

// Generate produces n labeled events: roughly 60% Normal, the rest spread
// over the attack categories, with successRatio of the attacks marked
// successful and given matching response attributes.
func (g *Generator) Generate(n int, successRatio float64) []*event.Event {
	events := make([]*event.Event, 0, n)
	for i := 0; i < n; i++ {
		g.baseTime = g.baseTime.Add(time.Duration(1+g.rng.Intn(300)) * time.Second)

		attackType := event.TypeNormal
		if g.rng.Float64() >= 0.6 {
			attackType = event.Types[1+g.rng.Intn(len(event.Types)-1)]
		}

		successful := attackType != event.TypeNormal && g.rng.Float64() < successRatio
		path, payload, method := g.request(attackType)

		var status, size int
		switch {
		case successful:
			status = 200
			size = 5000 + g.rng.Intn(45000) // big leak
		case attackType == event.TypeNormal:
			status = 200
			size = 100 + g.rng.Intn(1900)
		default:
			status = []int{403, 404, 500}[g.rng.Intn(3)]
			size = g.rng.Intn(500)
		}

		ev := &event.Event{
			EventID:      uuid.New().String(),
			Timestamp:    g.baseTime,
			SourceIP:     fmt.Sprintf("192.168.1.%d", 1+g.rng.Intn(20)),
			Method:       method,
			URL:          path,
			UserAgent:    userAgents[g.rng.Intn(len(userAgents))],
			Headers:      map[string]string{"Host": "example.com"},
			StatusCode:   status,
			ResponseSize: size,
			AttackType:   attackType,
			IsSuccessful: successful,
		}
		if method == "POST" {
			ev.Payload = payload
		}
		ev.Clamp()
		events = append(events, ev)
	}
	return events
}

// request picks a URL path, payload, and method for the category.
func (g *Generator) request(attackType string) (path, payload, method string) {
	pick := func(options ...string) string {
		return options[g.rng.Intn(len(options))]
	}

	switch attackType {
	case event.TypeNormal:
		return pick("/home", "/login", "/dashboard", "/api/data", "/contact"), "", "GET"
	case event.TypeSQLi:
		return "/login", pick("' OR 1=1 --", "' UNION SELECT null, version() --", "admin' --"), "POST"
	case event.TypeXSS:
		return "/search?q=" + pick("<script>alert(1)</script>", "<img src=x onerror=alert(1)>"), "", "GET"
	case event.TypeTraversal:
		return "/download?file=" + pick("../../../../etc/passwd", "..%2f..%2fwindows%2fwin.ini"), "", "GET"
	case event.TypeCmdInjection:
		return "/ping?ip=127.0.0.1" + pick("; cat /etc/passwd", "| ipconfig", "$(whoami)"), "", "GET"
	case event.TypeSSRF:
		return "/webhook?url=" + pick("http://169.254.169.254/latest/meta-data/", "http://localhost:8080/admin"), "", "POST"
	case event.TypeHPP:
		return "/api/users?id=1&id=2", "", "GET"
	case event.TypeTyposquatting:
		// A lookalike-domain path rather than a payload.
		return "/goggle.com/login", "", "GET"
	default:
		return "/", "", "GET"
	}
}
