package metrics

// Sample is the subset of a telemetry row the derivation reads.
type Sample struct {
	FuelCurrent *float64
	Speed       *float64
	RPM         *float64

	EngineDamage       float64
	TransmissionDamage float64
	ChassisDamage      float64
	WheelsDamage       float64
	CabinDamage        float64
	CargoDamage        float64
}

func (s Sample) totalDamage() float64 {
	return s.EngineDamage + s.TransmissionDamage + s.ChassisDamage +
		s.WheelsDamage + s.CabinDamage + s.CargoDamage
}

// Derived holds the values computed from a job's telemetry. A nil field
// means there was no data for it, which is different from zero.
type Derived struct {
	FuelConsumed   *float64
	DamageTaken    *float64
	AvgSpeed       *float64
	AvgRPM         *float64
	RefuelDetected bool
}

// Derive turns samples ordered by capture time into job metrics.
//
// Fuel consumed is first minus last fuel level and is clamped at zero when
// a refuel made the tank fuller at the end. Damage taken is the cumulative
// damage on the final sample in percent. Averages only count samples with
// a strictly positive reading.
func Derive(samples []Sample) Derived {
	var d Derived
	if len(samples) == 0 {
		return d
	}

	first, last := samples[0], samples[len(samples)-1]
	if first.FuelCurrent != nil && last.FuelCurrent != nil {
		used := *first.FuelCurrent - *last.FuelCurrent
		if used < 0 {
			used = 0
			d.RefuelDetected = true
		}
		d.FuelConsumed = &used
	}

	damage := last.totalDamage() * 100
	d.DamageTaken = &damage

	d.AvgSpeed = positiveMean(samples, func(s Sample) *float64 { return s.Speed })
	d.AvgRPM = positiveMean(samples, func(s Sample) *float64 { return s.RPM })
	return d
}

func positiveMean(samples []Sample, field func(Sample) *float64) *float64 {
	var sum float64
	var n int
	for _, s := range samples {
		v := field(s)
		if v == nil || *v <= 0 {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// JobMetrics are the financial figures stored on a completed job.
type JobMetrics struct {
	FuelCost      *float64
	DamageCost    *float64
	Profit        *float64
	ProfitPerMile *float64
	FuelEconomy   *float64
}

// Summarize prices a job from its derived values. When neither fuel nor
// damage is known every figure stays nil.
func Summarize(income, distance float64, d Derived) JobMetrics {
	var m JobMetrics
	if d.FuelConsumed == nil && d.DamageTaken == nil {
		return m
	}

	fig := JobFigures{
		Income:       income,
		Distance:     distance,
		FuelConsumed: d.FuelConsumed,
		DamageTaken:  d.DamageTaken,
	}
	e := TotalExpenses(fig)
	profit := JobProfit(fig)
	ppm := ProfitPerMile(profit, distance)

	m.FuelCost = &e.FuelCost
	m.DamageCost = &e.DamageCost
	m.Profit = &profit
	m.ProfitPerMile = &ppm
	if d.FuelConsumed != nil {
		mpg := MilesPerGallon(distance, *d.FuelConsumed)
		m.FuelEconomy = &mpg
	}
	return m
}
