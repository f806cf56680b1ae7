package core

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/dkeye/Poker/internal/domain"
)

type Bucket struct {
	Value      domain.Vote `json:"value"`
	Count      int         `json:"count"`
	Percentage int         `json:"percentage"`
}

// Summary is derived on demand and never stored.
type Summary struct {
	Distribution []Bucket `json:"distribution"`
	// Average is nil when no numeric vote was cast.
	Average *float64 `json:"average"`
}

// Summarize computes the vote distribution and average over voters with a
// vote. Buckets are sorted by numeric value with "?" last.
func Summarize(participants []domain.Participant) Summary {
	counts := make(map[domain.Vote]int)
	total := 0
	sum, numeric := 0.0, 0
	for _, p := range participants {
		if !p.IsVoter() || !p.Vote.IsSet() {
			continue
		}
		counts[p.Vote]++
		total++
		if p.Vote == domain.Question {
			continue
		}
		if n, err := strconv.ParseFloat(string(p.Vote), 64); err == nil {
			sum += n
			numeric++
		}
	}

	out := Summary{Distribution: make([]Bucket, 0, len(counts))}
	for v, c := range counts {
		out.Distribution = append(out.Distribution, Bucket{
			Value:      v,
			Count:      c,
			Percentage: int(roundHalfUp(100 * float64(c) / float64(total))),
		})
	}
	slices.SortFunc(out.Distribution, func(a, b Bucket) int {
		return compareVotes(a.Value, b.Value)
	})

	if numeric > 0 {
		avg := roundHalfUp(sum/float64(numeric)*10) / 10
		out.Average = &avg
	}
	return out
}

func compareVotes(a, b domain.Vote) int {
	switch {
	case a == b:
		return 0
	case a == domain.Question:
		return 1
	case b == domain.Question:
		return -1
	}
	x, errA := strconv.ParseFloat(string(a), 64)
	y, errB := strconv.ParseFloat(string(b), 64)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(x, y)
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
