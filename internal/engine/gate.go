package engine

import (
	"sort"

	"github.com/spec-kit/allocation-service/internal/config"
	"github.com/spec-kit/allocation-service/internal/domain"
)

// Gate applies hard and soft eligibility constraints ahead of ranking.
type Gate struct {
	cfg config.EngineConfig
}

// NewGate creates a gate with the given tuning.
func NewGate(cfg config.EngineConfig) *Gate {
	return &Gate{cfg: cfg}
}

// HardBlocked reports whether a hard constraint rejects the staff member
// regardless of score: offline, or no workload headroom for one more
// allocation unit.
func (g *Gate) HardBlocked(staff *domain.Staff) bool {
	if staff.Availability == domain.AvailabilityOffline {
		return true
	}
	return staff.WorkloadPercent+g.cfg.AllocationUnit > g.cfg.MaxWorkloadPerPerson
}

// Offline reports whether the staff member is offline.
func (g *Gate) Offline(staff *domain.Staff) bool {
	return staff.Availability == domain.AvailabilityOffline
}

// OverCapacity reports whether one more allocation unit would exceed the
// configured workload ceiling.
func (g *Gate) OverCapacity(staff *domain.Staff) bool {
	return staff.WorkloadPercent+g.cfg.AllocationUnit > g.cfg.MaxWorkloadPerPerson
}

// IsEligible applies hard constraints and the soft minimum-score constraint.
func (g *Gate) IsEligible(staff *domain.Staff, score float64) bool {
	if g.HardBlocked(staff) {
		return false
	}
	return score >= g.cfg.MinSkillMatchThreshold
}

// Candidate pairs a staff member with its computed score.
type Candidate struct {
	Staff *domain.Staff
	Score float64
}

// SortCandidates orders candidates descending by score, ties broken by level
// then efficiency descending, then id ascending for determinism.
func SortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Staff.Level.Rank() != b.Staff.Level.Rank() {
			return a.Staff.Level.Rank() > b.Staff.Level.Rank()
		}
		if a.Staff.EfficiencyScore != b.Staff.EfficiencyScore {
			return a.Staff.EfficiencyScore > b.Staff.EfficiencyScore
		}
		return a.Staff.ID < b.Staff.ID
	})
}
