package domain

import "time"

// Availability enumerates staff scheduling states.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityBusy      Availability = "BUSY"
	AvailabilityOffline   Availability = "OFFLINE"
)

// StaffLevel enumerates seniority.
type StaffLevel string

const (
	StaffLevelJunior StaffLevel = "JUNIOR"
	StaffLevelMid    StaffLevel = "MID"
	StaffLevelSenior StaffLevel = "SENIOR"
	StaffLevelExpert StaffLevel = "EXPERT"
)

var staffLevelRank = map[StaffLevel]int{
	StaffLevelJunior: 1,
	StaffLevelMid:    2,
	StaffLevelSenior: 3,
	StaffLevelExpert: 4,
}

// Rank returns the ordinal position of the level; unknown levels rank lowest.
func (l StaffLevel) Rank() int {
	return staffLevelRank[l]
}

// ValidStaffLevel reports whether l is a known level.
func ValidStaffLevel(l StaffLevel) bool {
	_, ok := staffLevelRank[l]
	return ok
}

// ValidAvailability reports whether a is a known availability state.
func ValidAvailability(a Availability) bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityOffline:
		return true
	}
	return false
}

// Staff models a schedulable person.
type Staff struct {
	ID                 string
	Name               string
	Skills             []string
	Level              StaffLevel
	WorkloadPercent    int
	Availability       Availability
	EfficiencyScore    int
	HourlyRate         float64
	Region             string
	SeasonalPreference []string
	WeatherSuitability []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasSkill reports whether the staff member holds the given skill.
func (s *Staff) HasSkill(skill string) bool {
	for _, have := range s.Skills {
		if have == skill {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the staff record.
func (s *Staff) Clone() Staff {
	out := *s
	out.Skills = append([]string(nil), s.Skills...)
	out.SeasonalPreference = append([]string(nil), s.SeasonalPreference...)
	out.WeatherSuitability = append([]string(nil), s.WeatherSuitability...)
	return out
}
