package unfollow

// Role identifies which side of the follow graph an export document describes.
type Role string

const (
	// RoleFollowers marks the document listing accounts that follow the owner.
	RoleFollowers Role = "followers"
	// RoleFollowing marks the document listing accounts the owner follows.
	RoleFollowing Role = "following"
)

// ExportDocuments holds the raw HTML text of both export documents.
type ExportDocuments struct {
	Followers string
	Following string
}

// AnalysisResult holds the derived unfollower data for one analysis.
type AnalysisResult struct {
	FollowersCount   int      `json:"followersCount"`
	FollowingCount   int      `json:"followingCount"`
	Unfollowers      []string `json:"unfollowers"`
	UnfollowersCount int      `json:"unfollowersCount"`
}

// EveryoneFollowsBack reports whether the analysis found no unfollowers.
func (result AnalysisResult) EveryoneFollowsBack() bool {
	return result.UnfollowersCount == 0
}

// UploadSummary describes a document that was supplied for analysis.
type UploadSummary struct {
	Role     Role   `json:"role"`
	FileName string `json:"fileName"`
}
