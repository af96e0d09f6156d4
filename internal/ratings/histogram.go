package ratings

import (
	"math"

	"github.com/jonathan/movie-finder/internal/types"
)

// WeightedRating computes the mean rating from a per-star vote histogram:
// each bucket contributes count x stars, the sum is divided by total votes
// and rounded to 2 decimal places. Half-star buckets are supported. ok is
// false when the histogram carries no votes.
func WeightedRating(buckets []types.HistogramBucket) (rating float64, total int, ok bool) {
	var weighted float64
	for _, b := range buckets {
		if b.Count <= 0 {
			continue
		}
		weighted += float64(b.Count) * b.Stars
		total += b.Count
	}
	if total == 0 {
		return 0, 0, false
	}
	rating = math.Round(weighted/float64(total)*100) / 100
	return rating, total, true
}
