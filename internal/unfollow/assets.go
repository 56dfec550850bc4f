package unfollow

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed web/static/* web/templates/*
var embeddedFS embed.FS

const (
	templateBaseName          = "base"
	templateIndexFile         = "web/templates/index.tmpl"
	templateIndexName         = "index.tmpl"
	embeddedBaseCSSPath       = "web/static/base.css"
	embeddedAppJSPath         = "web/static/app.js"
	staticAssetsDirectory     = "web/static"
	accountHandlePrefix       = "@"
	pageTitleText             = "Instagram Unfollowers"
	unknownLabelText          = "Unknown"
	everyoneFollowsBackText   = "Everyone you follow follows you back"
	singleUnfollowerText      = "1 account doesn't follow you back"
	multipleUnfollowersFormat = "%d accounts don't follow you back"
	embedReadErrorFormat      = "embed read %s: %w"
)

func embeddedText(path string) (string, error) {
	content, err := fs.ReadFile(embeddedFS, path)
	if err != nil {
		return "", fmt.Errorf(embedReadErrorFormat, path, err)
	}
	return string(content), nil
}

// StaticAssets exposes the embedded static asset filesystem.
func StaticAssets() (fs.FS, error) {
	return fs.Sub(embeddedFS, staticAssetsDirectory)
}

func parseTemplates(fileSystem fs.FS, files ...string) (*template.Template, error) {
	parsedTemplate, err := template.New(templateBaseName).ParseFS(fileSystem, files...)
	if err != nil {
		return nil, err
	}
	return parsedTemplate, nil
}
