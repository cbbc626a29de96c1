package app

import (
	"math"

	"github.com/colibri-os/rlab/internal/domain"
)

// ProgressRules stores the static maxima and level ladder used by Compute.
type ProgressRules struct {
	MicroPerCategory    int
	EvidencePerCategory int
	MicroMax            int
	EvidenceMax         int
	Ladder              domain.LevelLadder
}

// DefaultProgressRules returns 3/1 per category, 21/7 overall, and the stock ladder.
func DefaultProgressRules() ProgressRules {
	return ProgressRules{
		MicroPerCategory:    3,
		EvidencePerCategory: 1,
		MicroMax:            21,
		EvidenceMax:         7,
		Ladder:              domain.DefaultLevelLadder(),
	}
}

// CategoryProgress stores clamped counts for one category.
type CategoryProgress struct {
	Category    domain.Category `json:"category"`
	Micro       int             `json:"micro"`
	Evidence    int             `json:"evidence"`
	MicroRaw    int             `json:"micro_raw"`
	EvidenceRaw int             `json:"evidence_raw"`
	MicroMax    int             `json:"micro_max"`
	EvidenceMax int             `json:"evidence_max"`
}

// Complete reports whether both category quotas are filled.
func (c CategoryProgress) Complete() bool {
	return c.Micro >= c.MicroMax && c.Evidence >= c.EvidenceMax
}

// ProgressSnapshot stores everything derived from one event log.
type ProgressSnapshot struct {
	Categories      []CategoryProgress `json:"categories"`
	MicroRaw        int                `json:"micro_raw"`
	EvidenceRaw     int                `json:"evidence_raw"`
	Micro           int                `json:"micro"`
	Evidence        int                `json:"evidence"`
	MicroMax        int                `json:"micro_max"`
	EvidenceMax     int                `json:"evidence_max"`
	CompletionIndex int                `json:"completion_index"`
	CurrentLevel    domain.Level       `json:"current_level"`
	NextLevel       *domain.Level      `json:"next_level,omitempty"`
	Evolved         bool               `json:"evolved"`
	TotalRecords    int                `json:"total_records"`
}

// Compute derives category counts, totals, completion index, and level from events.
// It never mutates its input.
func Compute(events []domain.Event, rules ProgressRules) ProgressSnapshot {
	cats := domain.Categories()
	index := make(map[domain.CategoryID]int, len(cats))
	buckets := make([]CategoryProgress, len(cats))
	for idx, category := range cats {
		index[category.ID] = idx
		buckets[idx] = CategoryProgress{
			Category:    category,
			MicroMax:    rules.MicroPerCategory,
			EvidenceMax: rules.EvidencePerCategory,
		}
	}

	snap := ProgressSnapshot{
		MicroMax:     rules.MicroMax,
		EvidenceMax:  rules.EvidenceMax,
		TotalRecords: len(events),
	}
	for _, event := range events {
		if !event.Counts() {
			continue
		}
		bucket := &buckets[index[event.Category]]
		switch event.Kind {
		case domain.EventKindMicroAction:
			bucket.MicroRaw++
			snap.MicroRaw++
		case domain.EventKindEvidence:
			bucket.EvidenceRaw++
			snap.EvidenceRaw++
		}
	}
	for idx := range buckets {
		buckets[idx].Micro = clamp(buckets[idx].MicroRaw, rules.MicroPerCategory)
		buckets[idx].Evidence = clamp(buckets[idx].EvidenceRaw, rules.EvidencePerCategory)
	}
	snap.Categories = buckets
	snap.Micro = clamp(snap.MicroRaw, rules.MicroMax)
	snap.Evidence = clamp(snap.EvidenceRaw, rules.EvidenceMax)
	snap.CompletionIndex = completionIndex(snap.Micro, rules.MicroMax, snap.Evidence, rules.EvidenceMax)

	decision := rules.Ladder.Resolve(snap.Micro, snap.Evidence)
	snap.CurrentLevel = decision.Current
	snap.NextLevel = decision.Next
	snap.Evolved = decision.Current.ID != rules.Ladder.Initial().ID
	return snap
}

// completionIndex averages both ratios and rounds half away from zero to 0..100.
func completionIndex(micro, microMax, evidence, evidenceMax int) int {
	value := math.Round((ratio(micro, microMax) + ratio(evidence, evidenceMax)) / 2 * 100)
	return max(0, min(100, int(value)))
}

// ratio returns value/limit, or 0 when limit is not positive.
func ratio(value, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(value) / float64(limit)
}

// clamp bounds a count to [0, limit].
func clamp(value, limit int) int {
	if limit < 0 {
		limit = 0
	}
	return max(0, min(value, limit))
}
