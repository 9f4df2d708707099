package posture

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Status weights used by the overall score.
var statusWeights = map[Status]float64{
	StatusGood:     100,
	StatusModerate: 60,
	StatusPoor:     30,
}

// Score thresholds for the overall status.
const (
	GoodScore     = 80
	ModerateScore = 50
)

// Score averages the status weights of the given metric statuses and
// returns the rounded 0-100 score with its overall status.
func Score(statuses ...Status) (int, Status) {
	if len(statuses) == 0 {
		return 0, StatusPoor
	}

	weights := make([]float64, len(statuses))
	for i, s := range statuses {
		weights[i] = statusWeights[s]
	}

	score := int(math.Round(stat.Mean(weights, nil)))
	return score, OverallStatus(score)
}

// OverallStatus maps an overall score to its status tier.
func OverallStatus(score int) Status {
	switch {
	case score >= GoodScore:
		return StatusGood
	case score >= ModerateScore:
		return StatusModerate
	default:
		return StatusPoor
	}
}
