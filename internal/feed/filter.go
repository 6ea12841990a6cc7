package feed

import "feedrank/internal/model"

// Filter drops candidates whose direct author, or whose retweeting/quoting
// author, is blocked, and candidates the viewer explicitly dismissed.
// Pure function, no I/O.
func Filter(cands []model.Candidate, v *model.ViewerContext) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if v.BlockedAuthorIDs.Has(c.AuthorID) {
			continue
		}
		if c.BoostAuthorID != "" && v.BlockedAuthorIDs.Has(c.BoostAuthorID) {
			continue
		}
		if v.DismissedPostIDs.Has(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}
