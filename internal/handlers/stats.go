package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/argus-triage/argus-go/internal/event"
)

// TimelineBucket is one hour of attack activity.
type TimelineBucket struct {
	Hour       time.Time `json:"hour"`
	Attempted  int       `json:"attempted"`
	Successful int       `json:"successful"`
}

// Timeline handles GET /api/stats/timeline: hourly buckets of attempted and
// successful attacks.
func (a *API) Timeline(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.All(r.Context())
	if err != nil {
		a.logger.Error("timeline fetch failed", "err", err)
		jsonError(w, "failed to fetch timeline", http.StatusInternalServerError)
		return
	}

	buckets := make(map[time.Time]*TimelineBucket)
	for _, ev := range events {
		if ev.AttackType == event.TypeNormal {
			continue
		}
		hour := ev.Timestamp.UTC().Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &TimelineBucket{Hour: hour}
			buckets[hour] = b
		}
		b.Attempted++
		if ev.IsSuccessful {
			b.Successful++
		}
	}

	out := make([]*TimelineBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })

	writeJSON(w, http.StatusOK, map[string]any{"timeline": out})
}

// IPStanding is one row of the top attacker ranking.
type IPStanding struct {
	SourceIP   string `json:"source_ip"`
	Attacks    int    `json:"attacks"`
	Successful int    `json:"successful"`
}

// TopIPs handles GET /api/stats/top-ips: source IPs ranked by attack volume.
// Normal traffic does not count.
func (a *API) TopIPs(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := a.store.All(r.Context())
	if err != nil {
		a.logger.Error("top ips fetch failed", "err", err)
		jsonError(w, "failed to fetch top ips", http.StatusInternalServerError)
		return
	}

	byIP := make(map[string]*IPStanding)
	for _, ev := range events {
		if ev.AttackType == event.TypeNormal {
			continue
		}
		s, ok := byIP[ev.SourceIP]
		if !ok {
			s = &IPStanding{SourceIP: ev.SourceIP}
			byIP[ev.SourceIP] = s
		}
		s.Attacks++
		if ev.IsSuccessful {
			s.Successful++
		}
	}

	out := make([]*IPStanding, 0, len(byIP))
	for _, s := range byIP {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attacks != out[j].Attacks {
			return out[i].Attacks > out[j].Attacks
		}
		return out[i].SourceIP < out[j].SourceIP
	})
	if len(out) > limit {
		out = out[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{"top_ips": out})
}

// Summary handles GET /api/stats: global counters for the dashboard header.
func (a *API) Summary(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.All(r.Context())
	if err != nil {
		a.logger.Error("summary fetch failed", "err", err)
		jsonError(w, "failed to fetch stats", http.StatusInternalServerError)
		return
	}

	var attacks, successful int
	byType := make(map[string]int)
	for _, ev := range events {
		byType[ev.AttackType]++
		if ev.AttackType != event.TypeNormal {
			attacks++
			if ev.IsSuccessful {
				successful++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_events":       len(events),
		"attack_events":      attacks,
		"successful_attacks": successful,
		"by_attack_type":     byType,
		"model_trained":      a.clf.IsTrained(),
	})
}
