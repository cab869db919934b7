// Package archive packs a published mailing into a compressed tar archive
// and reads documents back out of earlier ones.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// ErrNotFound is returned when an archive holds no entry with the wanted name.
var ErrNotFound = errors.New("file not found in archive")

// Reader reads the entries of a compressed tar archive.
type Reader struct {
	*tar.Reader
	closers []io.Closer // innermost stream first
}

// NewReader opens a .tar.xz or .tar.gz archive. The leading bytes must
// match the extension.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	kind, err := validation.ValidateFileType(f, path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch kind {
	case validation.FileTypeTarXZ:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz stream: %w", err)
		}
		return &Reader{Reader: tar.NewReader(xzr), closers: []io.Closer{f}}, nil
	case validation.FileTypeTarGZ:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip stream: %w", err)
		}
		return &Reader{Reader: tar.NewReader(gzr), closers: []io.Closer{gzr, f}}, nil
	}
	return nil, fmt.Errorf("unsupported archive format %s", kind)
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	errs := make([]error, 0, len(r.closers))
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Visitor is called for each archive entry. Returning stop ends the walk.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate calls visitor for each entry in archive order.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("tar entry: %w", err)
		}
		if stop, err := visitor(header, r); stop || err != nil {
			return err
		}
	}
}

// Walk opens the archive at path and visits its entries.
func Walk(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// stripBase drops the leading directory of an entry name.
func stripBase(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// List returns the names of the regular files in an archive, without the
// leading directory.
func List(path string) ([]string, error) {
	var names []string
	err := Walk(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		if header.Typeflag == tar.TypeReg {
			names = append(names, stripBase(header.Name))
		}
		return false, nil
	})
	return names, err
}

// ReadFile reads one document from an archive, with or without the
// leading directory in name.
func ReadFile(archivePath, name string) ([]byte, error) {
	var content []byte
	found := false
	err := Walk(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Name != name && stripBase(header.Name) != name {
			return false, nil
		}
		found = true
		var err error
		content, err = io.ReadAll(r)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return content, nil
}

// Extract unpacks the regular files of an archive into dstDir, dropping the
// leading directory. Entries that would land outside dstDir are rejected.
// It returns the written paths.
func Extract(archivePath, dstDir string) ([]string, error) {
	var written []string
	err := Walk(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		rel, err := validation.EntryPath(stripBase(header.Name))
		if err != nil {
			return true, fmt.Errorf("entry %s: %w", header.Name, err)
		}
		path := filepath.Join(dstDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return true, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return true, err
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return true, err
		}
		if err := f.Close(); err != nil {
			return true, err
		}
		written = append(written, path)
		return false, nil
	})
	return written, err
}
