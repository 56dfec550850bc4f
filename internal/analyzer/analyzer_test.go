package analyzer_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/f-sync/igsync/internal/analyzer"
	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	profileLinkFormat = `<div><a target="_blank" href="https://www.instagram.com/%s">%s</a></div>`
	exportHeader      = `<html><head><title>Followers</title></head><body>`
	exportFooter      = `</body></html>`
)

func exportHTML(accountHandles ...string) string {
	var builder strings.Builder
	builder.WriteString(exportHeader)
	for _, handle := range accountHandles {
		builder.WriteString(strings.ReplaceAll(profileLinkFormat, "%s", handle))
	}
	builder.WriteString(exportFooter)
	return builder.String()
}

func TestAnalyze(t *testing.T) {
	testCases := []struct {
		name           string
		followersHTML  string
		followingHTML  string
		expectedResult unfollow.AnalysisResult
		expectedError  error
		expectedRoles  []unfollow.Role
	}{
		{
			name:          "one account not following back",
			followersHTML: exportHTML("alice", "bob"),
			followingHTML: exportHTML("alice", "bob", "carol"),
			expectedResult: unfollow.AnalysisResult{
				FollowersCount:   2,
				FollowingCount:   3,
				Unfollowers:      []string{"carol"},
				UnfollowersCount: 1,
			},
		},
		{
			name:          "everyone follows back",
			followersHTML: exportHTML("alice"),
			followingHTML: exportHTML("alice"),
			expectedResult: unfollow.AnalysisResult{
				FollowersCount:   1,
				FollowingCount:   1,
				Unfollowers:      []string{},
				UnfollowersCount: 0,
			},
		},
		{
			name:          "both documents without links",
			followersHTML: "<html><body>nothing</body></html>",
			followingHTML: "<html><body>still nothing</body></html>",
			expectedError: analyzer.ErrNoHandlesExtracted,
			expectedRoles: []unfollow.Role{unfollow.RoleFollowers, unfollow.RoleFollowing},
		},
		{
			name:          "followers document without links",
			followersHTML: "<html></html>",
			followingHTML: exportHTML("alice"),
			expectedError: analyzer.ErrNoHandlesExtracted,
			expectedRoles: []unfollow.Role{unfollow.RoleFollowers},
		},
		{
			name:          "following document without links",
			followersHTML: exportHTML("alice"),
			followingHTML: "",
			expectedError: analyzer.ErrNoHandlesExtracted,
			expectedRoles: []unfollow.Role{unfollow.RoleFollowing},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			result, err := analyzer.Analyze(testCase.followersHTML, testCase.followingHTML)
			if testCase.expectedError != nil {
				if !errors.Is(err, testCase.expectedError) {
					t.Fatalf("expected %v, got %v", testCase.expectedError, err)
				}
				var analysisError *analyzer.AnalysisError
				if !errors.As(err, &analysisError) {
					t.Fatalf("expected *AnalysisError, got %T", err)
				}
				if !reflect.DeepEqual(analysisError.Roles, testCase.expectedRoles) {
					t.Fatalf("unexpected roles %v, want %v", analysisError.Roles, testCase.expectedRoles)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze returned error: %v", err)
			}
			if !reflect.DeepEqual(result, testCase.expectedResult) {
				t.Fatalf("Analyze() = %+v, want %+v", result, testCase.expectedResult)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	const (
		expectedMissingInputMessage = "Please upload both files"
		expectedNoHandlesMessage    = "Could not extract Instagram usernames. Please ensure you're uploading the correct HTML files"
		expectedReadFailureMessage  = "Could not read the uploaded files. Please try again"
	)

	_, noHandlesErr := analyzer.Analyze("", "")

	testCases := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{name: "nil error", err: nil, expectedMessage: ""},
		{name: "missing input", err: analyzer.ErrMissingInput, expectedMessage: expectedMissingInputMessage},
		{name: "no handles", err: noHandlesErr, expectedMessage: expectedNoHandlesMessage},
		{name: "read failure", err: analyzer.ErrReadFailure, expectedMessage: expectedReadFailureMessage},
		{name: "wrapped read failure", err: errors.Join(errors.New("context"), analyzer.ErrReadFailure), expectedMessage: expectedReadFailureMessage},
		{name: "analysis in progress", err: analyzer.ErrAnalysisInProgress, expectedMessage: "An analysis is already running. Please wait for it to finish"},
		{name: "unexpected error", err: errors.New("boom"), expectedMessage: "Something went wrong while analyzing your files. Please try again"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if message := analyzer.UserMessage(testCase.err); message != testCase.expectedMessage {
				t.Fatalf("UserMessage() = %q, want %q", message, testCase.expectedMessage)
			}
		})
	}
}

func TestAnalysisErrorUnwrap(t *testing.T) {
	diskFailure := errors.New("disk unplugged")
	analysisError := &analyzer.AnalysisError{
		Kind:  analyzer.KindReadFailure,
		Roles: []unfollow.Role{unfollow.RoleFollowing},
		Err:   diskFailure,
	}

	if !errors.Is(analysisError, analyzer.ErrReadFailure) {
		t.Fatalf("expected error to match ErrReadFailure")
	}
	if !errors.Is(analysisError, diskFailure) {
		t.Fatalf("expected error to match underlying cause")
	}
	if errors.Is(analysisError, analyzer.ErrMissingInput) {
		t.Fatalf("did not expect error to match ErrMissingInput")
	}
	if !strings.Contains(analysisError.Error(), "disk unplugged") {
		t.Fatalf("expected message to include cause, got %q", analysisError.Error())
	}
}
