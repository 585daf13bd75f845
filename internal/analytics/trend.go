package analytics

// Trend describes the direction of client sentiment.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient"
)

const (
	trendMinSamples = 4
	trendDelta      = 0.34
)

// trendOf compares the mean of the newer half of samples against the older
// half. With an odd count the middle sample belongs to neither half.
func trendOf(samples []SentimentSample) Trend {
	n := len(samples)
	if n < trendMinSamples {
		return TrendInsufficient
	}
	half := n / 2
	delta := mean(samples[n-half:]) - mean(samples[:half])
	switch {
	case delta >= trendDelta:
		return TrendImproving
	case delta <= -trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func mean(samples []SentimentSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Value.Value()
	}
	return sum / float64(len(samples))
}
