package unfollow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

const (
	textCountsFormat  = "Followers: %d\nFollowing: %d\n"
	textAccountFormat = "%s\t%s\n"
)

// PageData captures the state needed to render the analyzer page.
type PageData struct {
	Result    *AnalysisResult
	Uploads   []UploadSummary
	Errors    []string
	Analyzing bool
}

// RenderPage assembles the HTML output using the embedded assets and templates.
func RenderPage(pageData PageData) (string, error) {
	cssText, err := embeddedText(embeddedBaseCSSPath)
	if err != nil {
		return "", err
	}
	jsText, err := embeddedText(embeddedAppJSPath)
	if err != nil {
		return "", err
	}
	resultJSON := ""
	if pageData.Result != nil {
		resultJSON, err = buildResultJSON(*pageData.Result)
		if err != nil {
			return "", err
		}
	}
	viewModel := newPageViewModel(pageData, cssText, jsText, resultJSON)
	tmpl, err := parseTemplates(embeddedFS, templateIndexFile)
	if err != nil {
		return "", fmt.Errorf("template parse: %w", err)
	}
	var buffer bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buffer, templateIndexName, viewModel); err != nil {
		return "", fmt.Errorf("template execute: %w", err)
	}
	return buffer.String(), nil
}

type pageViewModel struct {
	Title     string
	HasResult bool
	Analyzing bool
	Summary   string

	Counts struct{ Followers, Following, Unfollowers int }

	Unfollowers []accountCardTemplateData
	Uploads     []uploadSummaryViewModel
	Errors      []string

	ResultJSON template.JS
	CSS        template.CSS
	JS         template.JS
}

type uploadSummaryViewModel struct {
	RoleLabel string
	FileName  string
}

type accountCardTemplateData struct {
	Presentation accountPresentation
	Position     int
}

func newPageViewModel(pageData PageData, cssText string, jsText string, resultJSON string) pageViewModel {
	viewModel := pageViewModel{
		Title:     pageTitleText,
		Analyzing: pageData.Analyzing,
		CSS:       template.CSS(cssText),
		JS:        template.JS(jsText),
	}

	if len(pageData.Errors) > 0 {
		viewModel.Errors = append(viewModel.Errors, pageData.Errors...)
	}

	if len(pageData.Uploads) > 0 {
		viewModel.Uploads = make([]uploadSummaryViewModel, 0, len(pageData.Uploads))
		for _, upload := range pageData.Uploads {
			viewModel.Uploads = append(viewModel.Uploads, uploadSummaryViewModel{
				RoleLabel: string(upload.Role),
				FileName:  upload.FileName,
			})
		}
	}

	if pageData.Result == nil {
		return viewModel
	}

	result := *pageData.Result
	viewModel.HasResult = true
	viewModel.Summary = resolveSummaryLabel(result)
	viewModel.Counts.Followers = result.FollowersCount
	viewModel.Counts.Following = result.FollowingCount
	viewModel.Counts.Unfollowers = result.UnfollowersCount
	viewModel.Unfollowers = decorateUnfollowers(result.Unfollowers)
	viewModel.ResultJSON = template.JS(resultJSON)
	return viewModel
}

func decorateUnfollowers(unfollowers []string) []accountCardTemplateData {
	if len(unfollowers) == 0 {
		return nil
	}
	decorated := make([]accountCardTemplateData, 0, len(unfollowers))
	for index, handle := range unfollowers {
		decorated = append(decorated, accountCardTemplateData{
			Presentation: newAccountPresentation(handle),
			Position:     index + 1,
		})
	}
	return decorated
}

func buildResultJSON(result AnalysisResult) (string, error) {
	if result.Unfollowers == nil {
		result.Unfollowers = []string{}
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(encoded), nil
}

// RenderJSON encodes the result with the field names used by the HTTP API.
func RenderJSON(result AnalysisResult) (string, error) {
	return buildResultJSON(result)
}

// RenderText formats the result as a plain-text report: counts, the summary sentence and one line
// per unfollower with the profile URL.
func RenderText(result AnalysisResult) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, textCountsFormat, result.FollowersCount, result.FollowingCount)
	builder.WriteString(resolveSummaryLabel(result))
	builder.WriteString("\n")
	for _, handle := range result.Unfollowers {
		presentation := newAccountPresentation(handle)
		fmt.Fprintf(&builder, textAccountFormat, presentation.Handle(), presentation.ProfileURL())
	}
	return builder.String()
}
