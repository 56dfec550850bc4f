package unfollow

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	followersPartPattern          = `^followers(?:_(\d+))?\.html$`
	followingPartPattern          = `^following(?:_(\d+))?\.html$`
	errMessageMissingExportData   = "no followers or following html found in archive"
	errMessageReadExportFile      = "read export file"
	errMessageOpenExportArchive   = "open export archive"
	errMessageReadArchiveEntry    = "read archive entry"
	exportPartSeparator           = "\n"
	unnumberedExportPartSortIndex = 0
)

var (
	// ErrMissingExportDocuments indicates that an archive contained neither export document.
	ErrMissingExportDocuments = errors.New(errMessageMissingExportData)

	reFollowersPart = regexp.MustCompile(followersPartPattern)
	reFollowingPart = regexp.MustCompile(followingPartPattern)
)

type exportPart struct {
	index int
	name  string
	file  *zip.File
}

// ReadExportFile loads a single export HTML document from disk.
func ReadExportFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", errMessageReadExportFile, path, err)
	}
	return string(content), nil
}

// ReadInstagramZip loads both export documents from an Instagram data export archive on disk.
func ReadInstagramZip(zipPath string) (ExportDocuments, error) {
	zipReader, err := zip.OpenReader(zipPath)
	if err != nil {
		return ExportDocuments{}, fmt.Errorf("%s %s: %w", errMessageOpenExportArchive, zipPath, err)
	}
	defer zipReader.Close()
	return readExportArchive(&zipReader.Reader)
}

// ReadInstagramArchive loads both export documents from an in-memory or uploaded archive.
func ReadInstagramArchive(readerAt io.ReaderAt, size int64) (ExportDocuments, error) {
	zipReader, err := zip.NewReader(readerAt, size)
	if err != nil {
		return ExportDocuments{}, fmt.Errorf("%s: %w", errMessageOpenExportArchive, err)
	}
	return readExportArchive(zipReader)
}

func readExportArchive(zipReader *zip.Reader) (ExportDocuments, error) {
	var followerParts []exportPart
	var followingParts []exportPart
	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		lowerBase := strings.ToLower(filepath.Base(file.Name))
		if part, matched := matchExportPart(reFollowersPart, lowerBase, file); matched {
			followerParts = append(followerParts, part)
			continue
		}
		if part, matched := matchExportPart(reFollowingPart, lowerBase, file); matched {
			followingParts = append(followingParts, part)
		}
	}

	if len(followerParts) == 0 && len(followingParts) == 0 {
		return ExportDocuments{}, ErrMissingExportDocuments
	}

	followersText, err := joinExportParts(followerParts)
	if err != nil {
		return ExportDocuments{}, err
	}
	followingText, err := joinExportParts(followingParts)
	if err != nil {
		return ExportDocuments{}, err
	}
	return ExportDocuments{Followers: followersText, Following: followingText}, nil
}

func matchExportPart(pattern *regexp.Regexp, lowerBase string, file *zip.File) (exportPart, bool) {
	match := pattern.FindStringSubmatch(lowerBase)
	if match == nil {
		return exportPart{}, false
	}
	partIndex := unnumberedExportPartSortIndex
	if len(match) == 2 && match[1] != "" {
		if parsedIndex, parseErr := strconv.Atoi(match[1]); parseErr == nil {
			partIndex = parsedIndex
		}
	}
	return exportPart{index: partIndex, name: file.Name, file: file}, true
}

func joinExportParts(parts []exportPart) (string, error) {
	if len(parts) == 0 {
		return "", nil
	}
	sort.SliceStable(parts, func(firstIndex, secondIndex int) bool {
		if parts[firstIndex].index != parts[secondIndex].index {
			return parts[firstIndex].index < parts[secondIndex].index
		}
		return parts[firstIndex].name < parts[secondIndex].name
	})

	var builder strings.Builder
	for partPosition, part := range parts {
		content, err := readArchiveEntry(part.file)
		if err != nil {
			return "", err
		}
		if partPosition > 0 {
			builder.WriteString(exportPartSeparator)
		}
		builder.Write(content)
	}
	return builder.String(), nil
}

func readArchiveEntry(file *zip.File) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", errMessageReadArchiveEntry, file.Name, err)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", errMessageReadArchiveEntry, file.Name, err)
	}
	return content, nil
}
