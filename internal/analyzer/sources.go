package analyzer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	errMessageOpenUpload   = "open upload"
	errMessageReadUpload   = "read upload"
	errMessageInvalidUTF8  = "document is not valid text"
	errMessageSourceReader = "read document"
	errMessageReadArchive  = "read export archive"
)

// DocumentSource supplies the raw text of one export document.
type DocumentSource interface {
	ReadText(ctx context.Context) (string, error)
	Name() string
}

// TextSource is an in-memory document.
type TextSource struct {
	Label string
	Text  string
}

// ReadText returns the stored text.
func (source TextSource) ReadText(context.Context) (string, error) {
	return source.Text, nil
}

// Name returns the label supplied for the document.
func (source TextSource) Name() string {
	return source.Label
}

// FileSource reads an export document from disk.
type FileSource struct {
	Path string
}

// ReadText loads the file contents.
func (source FileSource) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return unfollow.ReadExportFile(source.Path)
}

// Name returns the file path.
func (source FileSource) Name() string {
	return source.Path
}

// UploadSource reads an export document submitted as a multipart form file.
type UploadSource struct {
	Header       *multipart.FileHeader
	MaxReadBytes int64
}

// ReadText reads the uploaded file, rejecting content that is not valid UTF-8 text.
func (source UploadSource) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	file, err := source.Header.Open()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", errMessageOpenUpload, source.Header.Filename, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if source.MaxReadBytes > 0 {
		reader = io.LimitReader(file, source.MaxReadBytes)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", errMessageReadUpload, source.Header.Filename, err)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%s %s: %s", errMessageReadUpload, source.Header.Filename, errMessageInvalidUTF8)
	}
	return string(content), nil
}

// Name returns the uploaded file name.
func (source UploadSource) Name() string {
	if source.Header == nil {
		return ""
	}
	return source.Header.Filename
}

// ReaderSource reads an export document from an arbitrary reader exactly once.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

// ReadText drains the reader.
func (source ReaderSource) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, source.Reader); err != nil {
		return "", fmt.Errorf("%s %s: %w", errMessageSourceReader, source.Label, err)
	}
	return builder.String(), nil
}

// Name returns the label supplied for the reader.
func (source ReaderSource) Name() string {
	return source.Label
}

// NewArchiveSources returns the followers and following sources of one export archive. The archive
// is opened at most once, by whichever source is read first.
func NewArchiveSources(archiveName string, open func() (unfollow.ExportDocuments, error)) (DocumentSource, DocumentSource) {
	shared := &archiveContents{name: archiveName, open: open}
	return archiveSource{contents: shared, role: unfollow.RoleFollowers}, archiveSource{contents: shared, role: unfollow.RoleFollowing}
}

type archiveContents struct {
	name      string
	open      func() (unfollow.ExportDocuments, error)
	once      sync.Once
	documents unfollow.ExportDocuments
	err       error
}

func (contents *archiveContents) load() (unfollow.ExportDocuments, error) {
	contents.once.Do(func() {
		contents.documents, contents.err = contents.open()
	})
	return contents.documents, contents.err
}

type archiveSource struct {
	contents *archiveContents
	role     unfollow.Role
}

func (source archiveSource) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	documents, err := source.contents.load()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", errMessageReadArchive, source.contents.name, err)
	}
	if source.role == unfollow.RoleFollowers {
		return documents.Followers, nil
	}
	return documents.Following, nil
}

func (source archiveSource) Name() string {
	return source.contents.name
}
