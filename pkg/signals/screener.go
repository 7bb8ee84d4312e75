// Package signals implements windowed trend screening over the auxiliary
// time-series signals stored alongside the fact store, joined against the
// same entity identity space.
//
// Trend detection is intentionally naive: the EPS-like series is scored by
// endpoint delta (latest minus earliest in window), not regression. That is
// a documented simplification, not a defect.
package signals

import (
	"context"
	"sort"
	"time"

	"github.com/edgarlens/factgraph/pkg/factstore"
)

// Defaults for the screening windows.
const (
	DefaultEpsLookbackDays  = 90
	DefaultFlowLookbackDays = 28
	DefaultMaxResults       = 25
)

// Request configures one screening pass. Zero-valued windows and caps fall
// back to the defaults; zero thresholds are legitimate values and are used
// as given.
type Request struct {
	EpsSignalKey     string  `json:"eps_signal_key"`
	FlowSignalKey    string  `json:"flow_signal_key"`
	EpsLookbackDays  int     `json:"eps_lookback_days,omitempty"`
	FlowLookbackDays int     `json:"flow_lookback_days,omitempty"`
	EpsMinDelta      float64 `json:"eps_min_delta"`
	FlowMinSum       float64 `json:"flow_min_sum"`
	MaxResults       int     `json:"max_results,omitempty"`
}

// Candidate is one subject passing both screens.
type Candidate struct {
	SubjectKey string  `json:"subject_key"`
	ExternalID string  `json:"external_id"`
	EpsDelta   float64 `json:"eps_delta"`
	FlowSum    float64 `json:"flow_sum"`
}

// Screener evaluates screening requests against the fact store.
type Screener struct {
	store factstore.Store
	now   func() time.Time
}

// NewScreener creates a screener over the given store.
func NewScreener(store factstore.Store) *Screener {
	return &Screener{store: store, now: time.Now}
}

// Screen loads both series and returns subjects whose EPS endpoint delta
// and flow window sum both clear their thresholds, ordered by flow sum
// descending and capped at MaxResults.
func (s *Screener) Screen(ctx context.Context, req *Request) ([]Candidate, error) {
	epsDays := req.EpsLookbackDays
	if epsDays <= 0 {
		epsDays = DefaultEpsLookbackDays
	}
	flowDays := req.FlowLookbackDays
	if flowDays <= 0 {
		flowDays = DefaultFlowLookbackDays
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	now := s.now().UTC()
	epsSeries, err := s.store.SignalSeries(ctx, req.EpsSignalKey, now.AddDate(0, 0, -epsDays))
	if err != nil {
		return nil, err
	}
	flowSeries, err := s.store.SignalSeries(ctx, req.FlowSignalKey, now.AddDate(0, 0, -flowDays))
	if err != nil {
		return nil, err
	}

	candidates := Evaluate(epsSeries, flowSeries, req.EpsMinDelta, req.FlowMinSum)
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates, nil
}

// Evaluate computes per-subject endpoint deltas and window sums and keeps
// subjects clearing both thresholds. Both thresholds are strict: equal is
// not enough. Subjects present in only one series are excluded.
func Evaluate(epsSeries, flowSeries []factstore.SignalPoint, epsMinDelta, flowMinSum float64) []Candidate {
	deltas := endpointDeltas(epsSeries)
	sums := map[string]float64{}
	externalIDs := map[string]string{}
	for _, pt := range flowSeries {
		sums[pt.SubjectKey] += pt.Value
		externalIDs[pt.SubjectKey] = pt.ExternalID
	}

	candidates := []Candidate{}
	for subject, delta := range deltas {
		sum, ok := sums[subject]
		if !ok {
			continue
		}
		if delta > epsMinDelta && sum > flowMinSum {
			candidates = append(candidates, Candidate{
				SubjectKey: subject,
				ExternalID: externalIDs[subject],
				EpsDelta:   delta,
				FlowSum:    sum,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FlowSum != candidates[j].FlowSum {
			return candidates[i].FlowSum > candidates[j].FlowSum
		}
		return candidates[i].SubjectKey < candidates[j].SubjectKey
	})
	return candidates
}

// endpointDeltas computes latest minus earliest value per subject. Series
// points arrive ordered by subject and date, but the fold does not rely on
// it beyond per-subject date ordering.
func endpointDeltas(series []factstore.SignalPoint) map[string]float64 {
	type endpoints struct {
		earliest, latest factstore.SignalPoint
	}

	bySubject := map[string]*endpoints{}
	for _, pt := range series {
		ep, seen := bySubject[pt.SubjectKey]
		if !seen {
			bySubject[pt.SubjectKey] = &endpoints{earliest: pt, latest: pt}
			continue
		}
		if pt.AsOfDate.Before(ep.earliest.AsOfDate) {
			ep.earliest = pt
		}
		if !pt.AsOfDate.Before(ep.latest.AsOfDate) {
			ep.latest = pt
		}
	}

	deltas := map[string]float64{}
	for subject, ep := range bySubject {
		deltas[subject] = ep.latest.Value - ep.earliest.Value
	}
	return deltas
}
