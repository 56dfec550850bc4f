package unfollow

import (
	"testing"
	"testing/fstest"
)

func TestParseTemplatesUsesViewModelOnly(t *testing.T) {
	testCases := []struct {
		name          string
		fileSystem    fstest.MapFS
		fileName      string
		expectedError bool
	}{
		{
			name:     "embedded page template",
			fileName: templateIndexFile,
		},
		{
			name:     "method calls on the view model",
			fileName: "card.tmpl",
			fileSystem: fstest.MapFS{
				"card.tmpl": {Data: []byte(`<a href="{{.Presentation.ProfileURL}}">{{.Presentation.Handle}}</a>`)},
			},
		},
		{
			name:     "helper functions are not registered",
			fileName: "card.tmpl",
			fileSystem: fstest.MapFS{
				"card.tmpl": {Data: []byte(`<a href="{{profileURL .Handle}}">{{label .Handle}}</a>`)},
			},
			expectedError: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			var err error
			if testCase.fileSystem == nil {
				_, err = parseTemplates(embeddedFS, testCase.fileName)
			} else {
				_, err = parseTemplates(testCase.fileSystem, testCase.fileName)
			}
			if testCase.expectedError && err == nil {
				t.Fatalf("expected parse error")
			}
			if !testCase.expectedError && err != nil {
				t.Fatalf("parseTemplates returned error: %v", err)
			}
		})
	}
}
