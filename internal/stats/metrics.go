package stats

// Metrics are the rates reported for one CounterSet. Rates are percentages
// of TotalBase.
type Metrics struct {
	Q30Rate       float64 `json:"q30_rate"`
	Q20Rate       float64 `json:"q20_rate"`
	NRate         float64 `json:"n_rate"`
	GCRate        float64 `json:"gc_rate"`
	AvgReadLength float64 `json:"avg_read_length"`
}

// Derive computes the rates of c. Any rate whose denominator is zero is 0.
func Derive(c CounterSet) Metrics {
	return Metrics{
		Q30Rate:       percent(c.Q30, c.TotalBase),
		Q20Rate:       percent(c.Q20, c.TotalBase),
		NRate:         percent(c.N, c.TotalBase),
		GCRate:        percent(c.G+c.C, c.TotalBase),
		AvgReadLength: ratio(c.TotalBase, c.TotalRead),
	}
}

func percent(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) * 100 / float64(den)
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
