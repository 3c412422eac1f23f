package engine

import (
	"github.com/spec-kit/allocation-service/internal/config"
	"github.com/spec-kit/allocation-service/internal/domain"
)

// Scorer computes deterministic match scores for (staff, work item) pairs.
// Scoring is a pure function of its inputs; identical state always yields
// identical scores.
type Scorer struct {
	cfg config.EngineConfig
}

// NewScorer creates a scorer with the given tuning.
func NewScorer(cfg config.EngineConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// SkillMatch returns the fraction of required skills the staff member holds,
// in [0,1]. An empty requirement set matches fully.
func (s *Scorer) SkillMatch(staff *domain.Staff, item *domain.WorkItem) float64 {
	if len(item.RequiredSkills) == 0 {
		return 1.0
	}
	matched := 0
	for _, req := range item.RequiredSkills {
		if staff.HasSkill(req) {
			matched++
		}
	}
	match := float64(matched) / float64(len(item.RequiredSkills))
	if match >= 1.0 && len(staff.Skills) > len(item.RequiredSkills) {
		match += s.cfg.SkillOvershootBonus
	}
	return clamp01(match)
}

// Score computes the weighted match score in [0,1].
func (s *Scorer) Score(staff *domain.Staff, item *domain.WorkItem) float64 {
	skill := s.SkillMatch(staff, item)
	headroom := float64(100-staff.WorkloadPercent) / 100.0
	if headroom < 0 {
		headroom = 0
	}
	efficiency := float64(staff.EfficiencyScore) / 100.0

	availability := s.cfg.BusyAvailabilityFactor
	if staff.Availability == domain.AvailabilityAvailable {
		availability = 1.0
	}

	score := skill*s.cfg.SkillWeight +
		headroom*s.cfg.HeadroomWeight +
		efficiency*s.cfg.EfficiencyWeight +
		availability*s.cfg.AvailabilityWeight

	if s.cfg.SituationalMatching {
		score += s.situationalBonus(staff, item)
	}

	return clamp01(score)
}

// situationalBonus awards a small additive bonus per matching region, season,
// and weather tag, capped by configuration.
func (s *Scorer) situationalBonus(staff *domain.Staff, item *domain.WorkItem) float64 {
	bonus := 0.0
	if item.Region != "" && staff.Region == item.Region {
		bonus += s.cfg.SituationalBonusPerTag
	}
	if item.Season != "" && containsTag(staff.SeasonalPreference, item.Season) {
		bonus += s.cfg.SituationalBonusPerTag
	}
	if item.WeatherDependency != "" && containsTag(staff.WeatherSuitability, item.WeatherDependency) {
		bonus += s.cfg.SituationalBonusPerTag
	}
	if bonus > s.cfg.SituationalBonusCap {
		bonus = s.cfg.SituationalBonusCap
	}
	return bonus
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
