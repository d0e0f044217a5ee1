package metrics

import (
	"cmp"
	"math"
	"slices"
)

// JobResult is a completed job as seen by the scoring functions.
type JobResult struct {
	Distance      float64
	FuelConsumed  *float64
	DamageTaken   *float64
	AvgSpeed      *float64
	DeliveredLate *bool
}

// UserAverage is a user's historical baseline over completed jobs.
type UserAverage struct {
	AvgMPG    float64 `json:"avg_mpg"`
	AvgDamage float64 `json:"avg_damage"`
	AvgSpeed  float64 `json:"avg_speed"`
}

const (
	baseScore      = 100.0
	fuelWeight     = 30.0
	damageWeight   = 30.0
	onTimeBonus    = 20.0
	speedPenalty   = 10.0
	speedTolerance = 0.1
)

// PerformanceScore rates a job against the user's averages on a 0..100 scale.
func PerformanceScore(job JobResult, avg UserAverage) float64 {
	score := baseScore

	if job.FuelConsumed != nil && *job.FuelConsumed > 0 && job.Distance > 0 && avg.AvgMPG > 0 {
		mpg := job.Distance / *job.FuelConsumed
		score += clamp((mpg-avg.AvgMPG)/avg.AvgMPG*fuelWeight, -fuelWeight, fuelWeight)
	}

	if job.DamageTaken != nil && avg.AvgDamage > 0 {
		score += clamp((avg.AvgDamage-*job.DamageTaken)/avg.AvgDamage*damageWeight, -damageWeight, damageWeight)
	}

	if job.DeliveredLate != nil {
		if *job.DeliveredLate {
			score -= onTimeBonus
		} else {
			score += onTimeBonus
		}
	}

	if job.AvgSpeed != nil && *job.AvgSpeed > 0 && avg.AvgSpeed > 0 {
		diff := (*job.AvgSpeed - avg.AvgSpeed) / avg.AvgSpeed
		if diff < -speedTolerance || diff > speedTolerance {
			score -= speedPenalty
		}
	}

	return clamp(score, 0, 100)
}

// PerformanceRating maps a score to its dashboard label.
func PerformanceRating(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Great"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}

// Opportunity is one area where a job fell short of the user's baseline.
type Opportunity struct {
	Category         string  `json:"category"`
	CurrentValue     float64 `json:"current_value"`
	OptimalValue     float64 `json:"optimal_value"`
	PotentialSavings float64 `json:"potential_savings"`
	Tip              string  `json:"tip"`
}

// estimated fuel wasted by running well above the usual speed
const speedingSavings = 50.0

// ImprovementOpportunities lists where job underperformed avg, largest
// potential savings first.
func ImprovementOpportunities(job JobResult, avg UserAverage) []Opportunity {
	var out []Opportunity

	if job.FuelConsumed != nil && *job.FuelConsumed > 0 && job.Distance > 0 && avg.AvgMPG > 0 {
		mpg := job.Distance / *job.FuelConsumed
		if mpg < avg.AvgMPG {
			out = append(out, Opportunity{
				Category:         "Fuel Economy",
				CurrentValue:     mpg,
				OptimalValue:     avg.AvgMPG,
				PotentialSavings: FuelCost(*job.FuelConsumed - job.Distance/avg.AvgMPG),
				Tip:              "Improve MPG by maintaining steady speed and shifting at lower RPM",
			})
		}
	}

	if job.DamageTaken != nil && *job.DamageTaken > 0 && *job.DamageTaken > avg.AvgDamage {
		out = append(out, Opportunity{
			Category:         "Damage Control",
			CurrentValue:     *job.DamageTaken,
			OptimalValue:     avg.AvgDamage,
			PotentialSavings: DamageCost(*job.DamageTaken - avg.AvgDamage),
			Tip:              "Reduce speed on rough roads and avoid harsh braking",
		})
	}

	if job.AvgSpeed != nil && *job.AvgSpeed > 0 && avg.AvgSpeed > 0 && *job.AvgSpeed > avg.AvgSpeed*(1+speedTolerance) {
		out = append(out, Opportunity{
			Category:         "Speed Management",
			CurrentValue:     *job.AvgSpeed,
			OptimalValue:     avg.AvgSpeed,
			PotentialSavings: speedingSavings,
			Tip:              "Reduce speed to save fuel and reduce damage risk",
		})
	}

	slices.SortStableFunc(out, func(a, b Opportunity) int {
		return cmp.Compare(b.PotentialSavings, a.PotentialSavings)
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
