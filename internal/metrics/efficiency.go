package metrics

func MilesPerGallon(distance, fuelConsumed float64) float64 {
	if fuelConsumed == 0 {
		return 0
	}
	return distance / fuelConsumed
}

// FuelRange is how far the remaining fuel lasts at the given economy.
func FuelRange(fuelCurrent, avgMPG float64) float64 {
	return fuelCurrent * avgMPG
}

// FuelEfficiencyPercentage compares an MPG figure against the user's average.
// Positive values mean better than average.
func FuelEfficiencyPercentage(currentMPG, avgMPG float64) float64 {
	if avgMPG == 0 {
		return 0
	}
	return ((currentMPG - avgMPG) / avgMPG) * 100
}

func EstimatedFuelCost(remainingDistance, avgMPG, pricePerGallon float64) float64 {
	if avgMPG == 0 {
		return 0
	}
	return (remainingDistance / avgMPG) * pricePerGallon
}

func AverageSpeed(distance, timeHours float64) float64 {
	if timeHours == 0 {
		return 0
	}
	return distance / timeHours
}

// TimeEfficiency is estimated over actual time in percent. A zero estimate
// counts as on target (100). Above 100 means the run beat the estimate.
func TimeEfficiency(actualHours, estimatedHours float64) float64 {
	if estimatedHours == 0 {
		return 100
	}
	if actualHours == 0 {
		return 0
	}
	return (estimatedHours / actualHours) * 100
}
