// Package validation checks paths, names and file contents that come from
// the command line, the metadata document or a mailing archive before the
// publisher acts on them.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits.
const (
	// MaxIssueFileSize bounds a single issue record (4 MB).
	MaxIssueFileSize = 4 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotDirectory     = errors.New("not an existing directory")
	ErrIssueNumber      = errors.New("issue number must be positive")
	ErrFileType         = errors.New("file type mismatch")
)

// EntryPath checks a relative path taken from an archive entry and returns
// it cleaned. The path must stay below the directory it is resolved in.
func EntryPath(name string) (string, error) {
	if err := ValidatePath(name); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathTraversal, name)
	}
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return clean, nil
}

// ValidateFilename checks that filename is a single safe path element.
func ValidateFilename(filename string) error {
	switch {
	case filename == "":
		return ErrInvalidFilename
	case len(filename) > MaxFilenameLength:
		return ErrFilenameTooLong
	case filename == "." || filename == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidFilename, filename)
	case strings.ContainsAny(filename, `/\`):
		return fmt.Errorf("%w: %q holds a path separator", ErrInvalidFilename, filename)
	case strings.HasPrefix(filename, "-"):
		return fmt.Errorf("%w: %q starts with a hyphen", ErrInvalidFilename, filename)
	case strings.IndexFunc(filename, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: %q holds a control character", ErrInvalidFilename, filename)
	}
	return nil
}

// ValidatePrefix checks an output file name prefix from the metadata
// document. An empty prefix is allowed.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if err := ValidateFilename(prefix + "toc.html"); err != nil {
		return fmt.Errorf("file name prefix %q: %w", prefix, err)
	}
	return nil
}

// ValidatePath checks length and characters of a path without a base.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return ErrEmptyPath
	case len(path) > MaxPathLength:
		return ErrPathTooLong
	case strings.IndexFunc(path, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: control character in %q", ErrInvalidCharacter, path)
	}
	return nil
}

// CheckDirectory reports an error unless path is an existing directory.
func CheckDirectory(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// CheckFileSize rejects issue files larger than MaxIssueFileSize.
func CheckFileSize(size int64) error {
	if size > MaxIssueFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, MaxIssueFileSize)
	}
	return nil
}

// ValidateIssueNumber rejects issue numbers that cannot name an issue.
func ValidateIssueNumber(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrIssueNumber, n)
	}
	return nil
}

// FileType is a file type detected from content or name.
type FileType string

// Detected file types.
const (
	FileTypeTarXZ   FileType = "tar.xz"
	FileTypeTarGZ   FileType = "tar.gz"
	FileTypeXZ      FileType = "xz"
	FileTypeGzip    FileType = "gzip"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeXML     FileType = "xml"
	FileTypeHTML    FileType = "html"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// ValidateFileType checks that the leading bytes of r match what the
// extension of filename promises. It returns the type the file is taken as.
func ValidateFileType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFromMagic(buf)
	expected := detectFromExtension(filename)

	switch {
	case expected == FileTypeTarXZ && detected == FileTypeXZ:
		return FileTypeTarXZ, nil
	case expected == FileTypeTarGZ && detected == FileTypeGzip:
		return FileTypeTarGZ, nil
	case expected == detected:
		return detected, nil
	case detected == FileTypeUnknown && (expected == FileTypeXML || expected == FileTypeHTML):
		if isLikelyText(buf) {
			return expected, nil
		}
	case expected == FileTypeUnknown:
		return detected, nil
	}
	return FileTypeUnknown, fmt.Errorf("%w: extension suggests %s but content is %s", ErrFileType, expected, detected)
}

func detectFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		return FileTypeTarXZ
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FileTypeTarGZ
	}
	switch filepath.Ext(lower) {
	case ".xz":
		return FileTypeXZ
	case ".gz":
		return FileTypeGzip
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	case ".xml":
		return FileTypeXML
	case ".html", ".htm":
		return FileTypeHTML
	}
	return FileTypeUnknown
}

// isLikelyText reports whether buf looks like text: no NUL bytes and
// almost no other control characters.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 || bytes.IndexByte(buf, 0) >= 0 {
		return false
	}
	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b == '\t' || b == '\n' || b == '\r' || b >= 0x20:
			printable++
		default:
			control++
		}
	}
	return float64(printable)/float64(printable+control) > 0.95
}
