package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/f-sync/igsync/internal/analyzer"
	"github.com/f-sync/igsync/internal/unfollow"
	"github.com/f-sync/igsync/internal/watch"
)

const (
	outputFormatText          = "text"
	outputFormatJSON          = "json"
	outputFormatHTML          = "html"
	errMessageUnknownFormat   = "unknown output format"
	errMessageConflictingArgs = "--archive cannot be combined with --followers or --following"
	errMessageRender          = "render report"
	errMessageWatch           = "watch input files"
	createFileErrorFormat     = "create %s: %w"
	writeFileErrorFormat      = "write %s: %w"
	writeSuccessMessageFormat = "Wrote %s"
	logMessageRerunFailed     = "analysis after file change failed"
	logFieldChangedPath       = "changed_path"
)

var (
	// ErrUnknownFormat indicates an unsupported --format value.
	ErrUnknownFormat = errors.New(errMessageUnknownFormat)
	// ErrConflictingInputs indicates that an archive and individual documents were both supplied.
	ErrConflictingInputs = errors.New(errMessageConflictingArgs)
)

// AnalyzeConfiguration holds the inputs of one CLI invocation.
type AnalyzeConfiguration struct {
	FollowersPath string
	FollowingPath string
	ArchivePath   string
	Format        string
	OutputPath    string
}

// changeWatcher reports file changes until its context is done.
type changeWatcher interface {
	Run(ctx context.Context, onChange func(changedPath string)) error
}

// AnalyzeDependencies are the collaborators of AnalyzeApplication; nil fields use defaults.
type AnalyzeDependencies struct {
	Orchestrator    *analyzer.Orchestrator
	ReadArchive     func(string) (unfollow.ExportDocuments, error)
	RenderPage      func(unfollow.PageData) (string, error)
	WriteOutputFile func(string, string) error
	NewWatcher      func(paths []string) (changeWatcher, error)
	Logger          *zap.Logger
	Stdout          io.Writer
	Stderr          io.Writer
}

// AnalyzeApplication runs unfollower analyses for the command line.
type AnalyzeApplication struct {
	dependencies AnalyzeDependencies
}

// NewAnalyzeApplication constructs the application with default dependencies.
func NewAnalyzeApplication() AnalyzeApplication {
	return NewAnalyzeApplicationWithDependencies(AnalyzeDependencies{})
}

// NewAnalyzeApplicationWithDependencies fills unset dependencies with defaults.
func NewAnalyzeApplicationWithDependencies(dependencies AnalyzeDependencies) AnalyzeApplication {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Orchestrator == nil {
		dependencies.Orchestrator = analyzer.NewOrchestrator(analyzer.Config{Logger: dependencies.Logger})
	}
	if dependencies.ReadArchive == nil {
		dependencies.ReadArchive = unfollow.ReadInstagramZip
	}
	if dependencies.RenderPage == nil {
		dependencies.RenderPage = unfollow.RenderPage
	}
	if dependencies.WriteOutputFile == nil {
		dependencies.WriteOutputFile = defaultWriteOutputFile
	}
	if dependencies.NewWatcher == nil {
		logger := dependencies.Logger
		dependencies.NewWatcher = func(paths []string) (changeWatcher, error) {
			fileWatcher, err := watch.New(watch.Config{Paths: paths, Logger: logger})
			if err != nil {
				return nil, err
			}
			return fileWatcher, nil
		}
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = os.Stderr
	}
	return AnalyzeApplication{dependencies: dependencies}
}

// Run performs one analysis and writes the report.
func (application AnalyzeApplication) Run(executionContext context.Context, configuration AnalyzeConfiguration) error {
	if err := validateConfiguration(configuration); err != nil {
		return err
	}
	request, uploads := application.buildRequest(configuration)
	result, err := application.dependencies.Orchestrator.Run(executionContext, request)
	if err != nil {
		return err
	}
	report, err := application.renderReport(configuration.Format, result, uploads)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageRender, err)
	}
	if configuration.OutputPath == "" {
		_, writeErr := io.WriteString(application.dependencies.Stdout, report)
		return writeErr
	}
	if err := application.dependencies.WriteOutputFile(configuration.OutputPath, report); err != nil {
		return err
	}
	fmt.Fprintf(application.dependencies.Stdout, writeSuccessMessageFormat+"\n", configuration.OutputPath)
	return nil
}

// Watch runs an analysis immediately and again after every change to the input files, until
// executionContext is done. Failed analyses are reported and do not stop watching.
func (application AnalyzeApplication) Watch(executionContext context.Context, configuration AnalyzeConfiguration) error {
	if err := validateConfiguration(configuration); err != nil {
		return err
	}
	if err := application.Run(executionContext, configuration); err != nil {
		fmt.Fprintln(application.dependencies.Stderr, describeFailure(err))
	}

	fileWatcher, err := application.dependencies.NewWatcher(inputPaths(configuration))
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageWatch, err)
	}
	return fileWatcher.Run(executionContext, func(changedPath string) {
		if runErr := application.Run(executionContext, configuration); runErr != nil {
			application.dependencies.Logger.Warn(logMessageRerunFailed, zap.String(logFieldChangedPath, changedPath), zap.Error(runErr))
			fmt.Fprintln(application.dependencies.Stderr, describeFailure(runErr))
		}
	})
}

func (application AnalyzeApplication) buildRequest(configuration AnalyzeConfiguration) (analyzer.Request, []unfollow.UploadSummary) {
	if configuration.ArchivePath != "" {
		archivePath := configuration.ArchivePath
		followersSource, followingSource := analyzer.NewArchiveSources(archivePath, func() (unfollow.ExportDocuments, error) {
			return application.dependencies.ReadArchive(archivePath)
		})
		uploads := []unfollow.UploadSummary{
			{Role: unfollow.RoleFollowers, FileName: archivePath},
			{Role: unfollow.RoleFollowing, FileName: archivePath},
		}
		return analyzer.Request{Followers: followersSource, Following: followingSource}, uploads
	}

	var request analyzer.Request
	var uploads []unfollow.UploadSummary
	if configuration.FollowersPath != "" {
		request.Followers = analyzer.FileSource{Path: configuration.FollowersPath}
		uploads = append(uploads, unfollow.UploadSummary{Role: unfollow.RoleFollowers, FileName: configuration.FollowersPath})
	}
	if configuration.FollowingPath != "" {
		request.Following = analyzer.FileSource{Path: configuration.FollowingPath}
		uploads = append(uploads, unfollow.UploadSummary{Role: unfollow.RoleFollowing, FileName: configuration.FollowingPath})
	}
	return request, uploads
}

func (application AnalyzeApplication) renderReport(format string, result unfollow.AnalysisResult, uploads []unfollow.UploadSummary) (string, error) {
	switch normalizeFormat(format) {
	case outputFormatText:
		return unfollow.RenderText(result), nil
	case outputFormatJSON:
		encoded, err := unfollow.RenderJSON(result)
		if err != nil {
			return "", err
		}
		return encoded + "\n", nil
	case outputFormatHTML:
		return application.dependencies.RenderPage(unfollow.PageData{Result: &result, Uploads: uploads})
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func validateConfiguration(configuration AnalyzeConfiguration) error {
	if configuration.ArchivePath != "" && (configuration.FollowersPath != "" || configuration.FollowingPath != "") {
		return ErrConflictingInputs
	}
	switch normalizeFormat(configuration.Format) {
	case outputFormatText, outputFormatJSON, outputFormatHTML:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, configuration.Format)
	}
}

func normalizeFormat(format string) string {
	trimmedFormat := strings.ToLower(strings.TrimSpace(format))
	if trimmedFormat == "" {
		return outputFormatText
	}
	return trimmedFormat
}

func inputPaths(configuration AnalyzeConfiguration) []string {
	if configuration.ArchivePath != "" {
		return []string{configuration.ArchivePath}
	}
	var paths []string
	for _, path := range []string{configuration.FollowersPath, configuration.FollowingPath} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// describeFailure converts analysis failures to their user message and leaves other errors intact.
func describeFailure(err error) string {
	var analysisError *analyzer.AnalysisError
	if errors.As(err, &analysisError) {
		return analyzer.UserMessage(err)
	}
	return err.Error()
}

func defaultWriteOutputFile(outputPath string, contents string) error {
	file, createError := os.Create(outputPath)
	if createError != nil {
		return fmt.Errorf(createFileErrorFormat, outputPath, createError)
	}
	defer file.Close()

	if _, writeError := file.WriteString(contents); writeError != nil {
		return fmt.Errorf(writeFileErrorFormat, outputPath, writeError)
	}
	return nil
}
