package unfollow

import (
	"fmt"
	"strings"

	"github.com/f-sync/igsync/internal/handles"
)

// resolveHandleLabel formats a handle with the account prefix when the handle is present.
func resolveHandleLabel(handle string) string {
	trimmedHandle := strings.TrimSpace(handle)
	if trimmedHandle == "" {
		return unknownLabelText
	}
	return accountHandlePrefix + trimmedHandle
}

// resolveSummaryLabel describes the unfollower count in a sentence suitable for the result header.
func resolveSummaryLabel(result AnalysisResult) string {
	switch result.UnfollowersCount {
	case 0:
		return everyoneFollowsBackText
	case 1:
		return singleUnfollowerText
	default:
		return fmt.Sprintf(multipleUnfollowersFormat, result.UnfollowersCount)
	}
}

type accountPresentation struct {
	handle string
}

func newAccountPresentation(handle string) accountPresentation {
	return accountPresentation{handle: handle}
}

func (presentation accountPresentation) Handle() string {
	return resolveHandleLabel(presentation.handle)
}

func (presentation accountPresentation) ProfileURL() string {
	return handles.ProfileURL(presentation.handle)
}

func (presentation accountPresentation) Initial() string {
	trimmedHandle := strings.TrimSpace(presentation.handle)
	if trimmedHandle == "" {
		return accountHandlePrefix
	}
	return strings.ToUpper(string([]rune(trimmedHandle)[0]))
}
