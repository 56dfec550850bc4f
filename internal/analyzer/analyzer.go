// Package analyzer turns a pair of Instagram export documents into an unfollower analysis.
//
// Analyze is the pure text-level operation. Orchestrator wraps it with the read step: it checks
// that both documents were supplied, reads them concurrently and reports failures as
// *AnalysisError values whose kind maps to a single user-facing message via UserMessage.
// Nothing in this package performs network calls; document contents never leave the process.
package analyzer

import (
	"github.com/f-sync/igsync/internal/handles"
	"github.com/f-sync/igsync/internal/unfollow"
)

// Analyze extracts the handles of both documents and computes the accounts that do not follow back.
// It fails with a NoHandlesExtracted error when either document holds no profile links.
func Analyze(followersText string, followingText string) (unfollow.AnalysisResult, error) {
	followers := handles.Extract(followersText)
	following := handles.Extract(followingText)

	var emptyRoles []unfollow.Role
	if len(followers) == 0 {
		emptyRoles = append(emptyRoles, unfollow.RoleFollowers)
	}
	if len(following) == 0 {
		emptyRoles = append(emptyRoles, unfollow.RoleFollowing)
	}
	if len(emptyRoles) > 0 {
		return unfollow.AnalysisResult{}, newAnalysisError(KindNoHandlesExtracted, nil, emptyRoles...)
	}
	return unfollow.BuildResult(followers, following), nil
}
