package evaluation

import (
	"math"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// Round2 rounds to two decimal places, the precision every score in the
// system is reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AverageOf returns the arithmetic mean of the ratings, rounded to two
// decimals. An empty ratings map is the only error case: a record with no
// ratings has no meaningful score.
func AverageOf(ratings Ratings) (float64, error) {
	if len(ratings) == 0 {
		return 0, shared.ErrEmptyRatings
	}

	var sum float64
	for _, v := range ratings {
		sum += v
	}
	return Round2(sum / float64(len(ratings))), nil
}

// AverageAcrossRecords returns the mean of the per-record average scores,
// rounded to two decimals. An empty slice yields 0 without error: "no
// evaluations in this window" is an ordinary answer, not a failure.
func AverageAcrossRecords(records []*Record) float64 {
	if len(records) == 0 {
		return 0
	}

	var sum float64
	for _, r := range records {
		sum += r.AverageScore
	}
	return Round2(sum / float64(len(records)))
}
