// Package event defines the canonical security event record shared by the
// ingestion, classification, and query layers. Raw rows from uploads are
// normalized into this shape at the boundary; nothing downstream deals with
// loosely-typed data.
package event

import "time"

// Attack category labels. CategoryOrder in the rules package defines the
// tie-break priority; this list is the full label set.
const (
	TypeNormal        = "Normal"
	TypeSQLi          = "SQLi"
	TypeXSS           = "XSS"
	TypeTraversal     = "Traversal"
	TypeCmdInjection  = "CmdInjection"
	TypeSSRF          = "SSRF"
	TypeHPP           = "HPP"
	TypeTyposquatting = "Typosquatting"

	// TypePending marks an event that has not been through classification yet.
	TypePending = "pending"
	// TypeAttack is the generic label used when the statistical classifier
	// flags an event as hostile without resolving a concrete category.
	TypeAttack = "Attack"
)

// Types lists the concrete categories the system can label.
var Types = []string{
	TypeNormal, TypeSQLi, TypeXSS, TypeTraversal,
	TypeCmdInjection, TypeSSRF, TypeHPP, TypeTyposquatting,
}

// Event is the unified record for one HTTP access-log entry, request and
// response attributes plus classification output.
type Event struct {
	EventID      string            `json:"event_id"`
	Timestamp    time.Time         `json:"timestamp"`
	SourceIP     string            `json:"source_ip"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	UserAgent    string            `json:"user_agent"`
	Headers      map[string]string `json:"headers"`
	Payload      string            `json:"payload,omitempty"`
	StatusCode   int               `json:"status_code"`
	ResponseSize int               `json:"response_size"`
	AttackType   string            `json:"attack_type"`
	IsSuccessful bool              `json:"is_successful"`
	Confidence   float64           `json:"confidence"`
	RuleHits     []string          `json:"rule_hits"`
}

// Text returns the feature text used by the statistical classifier:
// method, URL, and payload concatenated.
func (e *Event) Text() string {
	return e.Method + " " + e.URL + " " + e.Payload
}

// Classified reports whether the event already carries a confident label.
// The 0.1 threshold matches the orchestrator's re-classification policy:
// anything at or below it is treated as unlabeled.
func (e *Event) Classified() bool {
	return e.AttackType != TypePending && e.Confidence > 0.1
}

// Clamp enforces the record invariants in place: status code in the valid
// HTTP range (else 200), non-negative response size, confidence in [0,1],
// attack type never empty.
func (e *Event) Clamp() {
	if e.StatusCode < 100 || e.StatusCode > 599 {
		e.StatusCode = 200
	}
	if e.ResponseSize < 0 {
		e.ResponseSize = 0
	}
	if e.Confidence < 0 {
		e.Confidence = 0
	}
	if e.Confidence > 1 {
		e.Confidence = 1
	}
	if e.AttackType == "" {
		e.AttackType = TypePending
	}
	if e.Headers == nil {
		e.Headers = map[string]string{}
	}
	if e.RuleHits == nil {
		e.RuleHits = []string{}
	}
}
