package handles

import (
	"regexp"
	"strings"
)

const (
	profileBaseURL            = "https://www.instagram.com/"
	profileLinkPattern        = `https://www\.instagram\.com/([^/"]+)`
	profileLinkCaptureGroup   = 1
	profileLinkSubmatchLength = 2
)

var profileLinkRegex = regexp.MustCompile(profileLinkPattern)

// Extract returns every handle referenced by an Instagram profile link in the text, in order of
// appearance and including repeats. Text without profile links yields an empty slice.
func Extract(text string) []string {
	matches := profileLinkRegex.FindAllStringSubmatch(text, -1)
	extracted := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) < profileLinkSubmatchLength {
			continue
		}
		extracted = append(extracted, match[profileLinkCaptureGroup])
	}
	return extracted
}

// Unique removes repeated handles while keeping the first occurrence of each.
func Unique(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	unique := make([]string, 0, len(handles))
	for _, handle := range handles {
		if _, exists := seen[handle]; exists {
			continue
		}
		seen[handle] = struct{}{}
		unique = append(unique, handle)
	}
	return unique
}

// ProfileURL builds the profile link for a handle. Blank handles produce an empty string.
func ProfileURL(handle string) string {
	trimmedHandle := strings.TrimSpace(handle)
	if trimmedHandle == "" {
		return ""
	}
	return profileBaseURL + trimmedHandle
}
