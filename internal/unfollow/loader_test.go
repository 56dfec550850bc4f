package unfollow_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/f-sync/igsync/internal/handles"
	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	loaderFollowersPartOne = `<a href="https://www.instagram.com/alice">alice</a>`
	loaderFollowersPartTwo = `<a href="https://www.instagram.com/bob">bob</a>`
	loaderFollowingHTML    = `<a href="https://www.instagram.com/alice">alice</a><a href="https://www.instagram.com/carol">carol</a>`
)

func TestReadInstagramZip(t *testing.T) {
	testCases := []struct {
		name              string
		files             map[string]string
		expectedError     error
		expectError       bool
		expectedFollowers []string
		expectedFollowing []string
	}{
		{
			name: "paginated followers parts join in part order",
			files: map[string]string{
				"connections/followers_and_following/followers_10.html": `<a href="https://www.instagram.com/zed">zed</a>`,
				"connections/followers_and_following/followers_2.html":  loaderFollowersPartTwo,
				"connections/followers_and_following/followers_1.html":  loaderFollowersPartOne,
				"connections/followers_and_following/following.html":    loaderFollowingHTML,
			},
			expectedFollowers: []string{"alice", "bob", "zed"},
			expectedFollowing: []string{"alice", "carol"},
		},
		{
			name: "legacy layout without numbering",
			files: map[string]string{
				"followers_and_following/followers.html": loaderFollowersPartOne,
				"followers_and_following/following.html": loaderFollowingHTML,
			},
			expectedFollowers: []string{"alice"},
			expectedFollowing: []string{"alice", "carol"},
		},
		{
			name: "unrelated html files are ignored",
			files: map[string]string{
				"followers_and_following/following_hashtags.html":      `<a href="https://www.instagram.com/explore/tags/go">go</a>`,
				"followers_and_following/recently_unfollowed.html":     `<a href="https://www.instagram.com/dave">dave</a>`,
				"followers_and_following/followers_1.html":             loaderFollowersPartOne,
				"followers_and_following/following.html":               loaderFollowingHTML,
				"followers_and_following/pending_follow_requests.html": `<a href="https://www.instagram.com/erin">erin</a>`,
			},
			expectedFollowers: []string{"alice"},
			expectedFollowing: []string{"alice", "carol"},
		},
		{
			name: "only following present",
			files: map[string]string{
				"following.html": loaderFollowingHTML,
			},
			expectedFollowers: []string{},
			expectedFollowing: []string{"alice", "carol"},
		},
		{
			name: "missing relationship documents",
			files: map[string]string{
				"personal_information/personal_information.html": "<html></html>",
			},
			expectError:   true,
			expectedError: unfollow.ErrMissingExportDocuments,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			archivePath := createArchive(t, testCase.files)

			documents, err := unfollow.ReadInstagramZip(archivePath)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if testCase.expectedError != nil && !errors.Is(err, testCase.expectedError) {
					t.Fatalf("expected %v, got %v", testCase.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadInstagramZip returned error: %v", err)
			}
			assertHandles(t, "followers", handles.Extract(documents.Followers), testCase.expectedFollowers)
			assertHandles(t, "following", handles.Extract(documents.Following), testCase.expectedFollowing)
		})
	}
}

func TestReadInstagramArchiveFromBytes(t *testing.T) {
	archivePath := createArchive(t, map[string]string{
		"followers_1.html": loaderFollowersPartOne,
		"following.html":   loaderFollowingHTML,
	})
	content, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	documents, err := unfollow.ReadInstagramArchive(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("ReadInstagramArchive returned error: %v", err)
	}
	assertHandles(t, "followers", handles.Extract(documents.Followers), []string{"alice"})

	if _, err := unfollow.ReadInstagramArchive(strings.NewReader("not a zip"), int64(len("not a zip"))); err == nil {
		t.Fatalf("expected error for invalid archive")
	}
}

func TestReadExportFile(t *testing.T) {
	tempDir := t.TempDir()
	exportPath := filepath.Join(tempDir, "followers_1.html")
	if err := os.WriteFile(exportPath, []byte(loaderFollowersPartOne), 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}

	testCases := []struct {
		name            string
		path            string
		expectError     bool
		expectedContent string
	}{
		{name: "existing file", path: exportPath, expectedContent: loaderFollowersPartOne},
		{name: "missing file", path: filepath.Join(tempDir, "missing.html"), expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			content, err := unfollow.ReadExportFile(testCase.path)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadExportFile returned error: %v", err)
			}
			if content != testCase.expectedContent {
				t.Fatalf("unexpected content %q", content)
			}
		})
	}
}

func createArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "instagram-export.zip")

	file, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create temp archive: %v", err)
	}
	defer file.Close()

	writer := zip.NewWriter(file)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create archive entry: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write archive entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close archive writer: %v", err)
	}
	return archivePath
}

func assertHandles(t *testing.T, label string, actual []string, expected []string) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("%s length mismatch: got %v, want %v", label, actual, expected)
	}
	for index, handle := range actual {
		if handle != expected[index] {
			t.Fatalf("%s[%d] = %s, want %s", label, index, handle, expected[index])
		}
	}
}
