package feed

import (
	"sort"

	"feedrank/internal/model"
)

// Diversify sorts scored candidates by score descending and greedily
// selects while enforcing the per-author cap and the reputation floor.
// Skipped candidates are not replaced. Selection stops once maxSurvivors
// is reached; the returned author counts feed thread-expansion bookkeeping.
func Diversify(scored []model.ScoredCandidate, authorLimit int, reputationFloor float64, maxSurvivors int) ([]model.ScoredCandidate, map[string]int) {
	sorted := make([]model.ScoredCandidate, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	counts := make(map[string]int)
	out := make([]model.ScoredCandidate, 0, maxSurvivors)
	for _, c := range sorted {
		if maxSurvivors > 0 && len(out) >= maxSurvivors {
			break
		}
		if authorLimit > 0 && counts[c.AuthorID] >= authorLimit {
			continue
		}
		if c.AuthorReputation < reputationFloor {
			continue
		}
		counts[c.AuthorID]++
		out = append(out, c)
	}
	return out, counts
}
