package metrics

const (
	// FuelPricePerGallon is the estimated diesel price used for expense figures.
	FuelPricePerGallon = 4.05

	// MaxRepairCost is the repair bill for 100% damage; cost scales linearly below it.
	MaxRepairCost = 10000.0
)

// Expenses is the cost breakdown of a single job.
type Expenses struct {
	FuelCost   float64 `json:"fuel_cost"`
	DamageCost float64 `json:"damage_cost"`
	Total      float64 `json:"total"`
}

// JobFigures holds the inputs of the profit functions. Nil pointers mean
// the value was never measured and are treated as no expense.
type JobFigures struct {
	Income       float64
	Distance     float64
	FuelConsumed *float64
	DamageTaken  *float64 // percent, 0..100 per subsystem sum
}

func FuelCost(gallons float64) float64 {
	return gallons * FuelPricePerGallon
}

func DamageCost(damagePercent float64) float64 {
	return (damagePercent / 100) * MaxRepairCost
}

// JobProfit returns income minus fuel and damage cost. It may be negative.
func JobProfit(j JobFigures) float64 {
	e := TotalExpenses(j)
	return j.Income - e.FuelCost - e.DamageCost
}

func ProfitPerMile(profit, distance float64) float64 {
	if distance == 0 {
		return 0
	}
	return profit / distance
}

func TotalExpenses(j JobFigures) Expenses {
	var e Expenses
	if j.FuelConsumed != nil {
		e.FuelCost = FuelCost(*j.FuelConsumed)
	}
	if j.DamageTaken != nil {
		e.DamageCost = DamageCost(*j.DamageTaken)
	}
	e.Total = e.FuelCost + e.DamageCost
	return e
}

// ProfitMargin returns profit as a percentage of revenue.
func ProfitMargin(profit, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return (profit / revenue) * 100
}
