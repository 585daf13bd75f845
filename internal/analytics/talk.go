package analytics

import (
	"slices"

	"github.com/hpungsan/parley/internal/transcript"
)

// TalkRatio accumulates airtime per speaker, measured in characters of
// normalized text. UNKNOWN speech is kept as its own share so the three
// percentages always sum to 100.
type TalkRatio struct {
	Salesperson int64 `json:"salesperson"`
	Client      int64 `json:"client"`
	Unknown     int64 `json:"unknown"`
}

// TalkPercent is TalkRatio as whole percentages.
type TalkPercent struct {
	Salesperson int `json:"salesperson"`
	Client      int `json:"client"`
	Unknown     int `json:"unknown"`
}

// Add credits weight to speaker.
func (t *TalkRatio) Add(speaker transcript.Speaker, weight int64) {
	if weight <= 0 {
		return
	}
	switch speaker {
	case transcript.SpeakerSalesperson:
		t.Salesperson += weight
	case transcript.SpeakerClient:
		t.Client += weight
	default:
		t.Unknown += weight
	}
}

// Total returns the sum of all weights.
func (t TalkRatio) Total() int64 {
	return t.Salesperson + t.Client + t.Unknown
}

// Percent converts the weights to integer percentages using largest-remainder
// rounding, so a non-empty ratio sums to exactly 100. All zeros when empty.
func (t TalkRatio) Percent() TalkPercent {
	total := t.Total()
	if total == 0 {
		return TalkPercent{}
	}

	weights := []int64{t.Salesperson, t.Client, t.Unknown}
	shares := make([]int, len(weights))
	rems := make([]int64, len(weights))
	assigned := 0
	for i, w := range weights {
		shares[i] = int(w * 100 / total)
		rems[i] = w * 100 % total
		assigned += shares[i]
	}

	order := []int{0, 1, 2}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case rems[a] > rems[b]:
			return -1
		case rems[a] < rems[b]:
			return 1
		}
		return 0
	})
	for i := 0; assigned < 100; i++ {
		shares[order[i%len(order)]]++
		assigned++
	}

	return TalkPercent{Salesperson: shares[0], Client: shares[1], Unknown: shares[2]}
}
