// Package safety turns scan candidates into confidence scores and risk
// levels. A score of 100 means cleanup is almost certainly safe; every
// signal that something might still matter deducts points.
package safety

import (
	"strings"
	"time"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/pricing"
	"github.com/cloudsweep-io/cloudsweep/internal/scanner"
)

// Deduction thresholds. Ages measure time since the resource was created;
// activity measures time since the last recorded use, such as a volume
// detachment.
const (
	recentAge   = 7 * 24 * time.Hour
	youngAge    = 30 * 24 * time.Hour
	maturingAge = 90 * 24 * time.Hour

	recentActivity = 7 * 24 * time.Hour

	largeSizeGB = 100
)

// meaningfulTagKeys are tag keys, lower-cased, whose presence suggests the
// resource belongs to something. Each present key deducts points.
var meaningfulTagKeys = []string{"environment", "project", "owner"}

// deduction is one row of the scoring table: a named signal and the points
// it removes when applies reports true.
type deduction struct {
	reason  string
	points  int
	applies func(c scanner.Candidate, now time.Time) bool
}

var deductions = []deduction{
	{
		reason: "created within 7 days",
		points: 50,
		applies: func(c scanner.Candidate, now time.Time) bool {
			return !c.CreatedAt.IsZero() && now.Sub(c.CreatedAt) < recentAge
		},
	},
	{
		reason: "created within 30 days",
		points: 20,
		applies: func(c scanner.Candidate, now time.Time) bool {
			age := now.Sub(c.CreatedAt)
			return !c.CreatedAt.IsZero() && age >= recentAge && age < youngAge
		},
	},
	{
		reason: "created within 90 days",
		points: 10,
		applies: func(c scanner.Candidate, now time.Time) bool {
			age := now.Sub(c.CreatedAt)
			return !c.CreatedAt.IsZero() && age >= youngAge && age < maturingAge
		},
	},
	{
		reason: "age unknown",
		points: 5,
		applies: func(c scanner.Candidate, now time.Time) bool {
			return c.CreatedAt.IsZero()
		},
	},
	{
		reason: "large resource",
		points: 15,
		applies: func(c scanner.Candidate, now time.Time) bool {
			return pricing.SizeBased(c.Kind) && c.SizeGB > largeSizeGB
		},
	},
	{
		reason: "recent activity",
		points: 30,
		applies: func(c scanner.Candidate, now time.Time) bool {
			return !c.LastActivity.IsZero() && now.Sub(c.LastActivity) < recentActivity
		},
	},
}

// Score computes the cleanup confidence for c at time now, starting from
// 100 and applying every matching deduction, clamped to [1, 100].
func Score(c scanner.Candidate, now time.Time) int {
	score := 100
	for _, d := range deductions {
		if d.applies(c, now) {
			score -= d.points
		}
	}
	score -= 10 * meaningfulTagCount(c.Tags)

	if score < 1 {
		score = 1
	}
	if score > 100 {
		score = 100
	}
	return score
}

// RiskForScore maps a confidence score to its risk level.
func RiskForScore(score int) models.RiskLevel {
	switch {
	case score >= 90:
		return models.RiskSafe
	case score >= 70:
		return models.RiskLow
	case score >= 50:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// meaningfulTagCount counts how many meaningful tag keys are present,
// matching case-insensitively.
func meaningfulTagCount(tags map[string]string) int {
	if len(tags) == 0 {
		return 0
	}
	count := 0
	for key := range tags {
		lower := strings.ToLower(key)
		for _, want := range meaningfulTagKeys {
			if lower == want {
				count++
				break
			}
		}
	}
	return count
}
