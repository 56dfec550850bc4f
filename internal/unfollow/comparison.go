package unfollow

import "github.com/f-sync/igsync/internal/handles"

// ComputeUnfollowers returns the handles present in following but absent from followers. The result
// keeps the order of first appearance in following and contains each handle once.
func ComputeUnfollowers(followers []string, following []string) []string {
	followerSet := make(map[string]struct{}, len(followers))
	for _, follower := range followers {
		followerSet[follower] = struct{}{}
	}

	notFollowingBack := make([]string, 0, len(following))
	for _, followed := range following {
		if _, followsBack := followerSet[followed]; followsBack {
			continue
		}
		notFollowingBack = append(notFollowingBack, followed)
	}
	return handles.Unique(notFollowingBack)
}

// BuildResult assembles the analysis result for the extracted handle sequences. Counts reflect the
// raw extraction lengths, repeats included.
func BuildResult(followers []string, following []string) AnalysisResult {
	unfollowers := ComputeUnfollowers(followers, following)
	return AnalysisResult{
		FollowersCount:   len(followers),
		FollowingCount:   len(following),
		Unfollowers:      unfollowers,
		UnfollowersCount: len(unfollowers),
	}
}
