// Package manifest records digests of the documents a run publishes so a
// mailing can be checked after it is copied or unpacked.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// FileName is the manifest written next to the documents.
const FileName = "manifest.json"

// ErrMismatch is returned by Verify when a document differs from its entry.
var ErrMismatch = errors.New("document does not match manifest")

// Entry describes one document.
type Entry struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Manifest describes a published mailing.
type Manifest struct {
	RunID     string  `json:"run_id"`
	Revision  string  `json:"revision"`
	CreatedAt string  `json:"created_at"`
	Documents []Entry `json:"documents"`
}

// Hash returns the SHA-256 and BLAKE3 digests of data as hex strings.
func Hash(data []byte) (sha string, b3 string) {
	s := sha256.Sum256(data)
	b := blake3.Sum256(data)
	return hex.EncodeToString(s[:]), hex.EncodeToString(b[:])
}

// Describe hashes the named documents of dir.
func Describe(dir string, names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		sha, b3 := Hash(data)
		entries = append(entries, Entry{
			Name:   name,
			Size:   int64(len(data)),
			SHA256: sha,
			BLAKE3: b3,
		})
	}
	return entries, nil
}

// Write stores m at path, replacing any earlier manifest atomically.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tempFile, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// Read loads a manifest.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Verify re-hashes every document of m in dir. It returns the names of the
// documents that are missing or differ, joined into an ErrMismatch error.
func Verify(dir string, m *Manifest) ([]string, error) {
	var bad []string
	for _, e := range m.Documents {
		data, err := os.ReadFile(filepath.Join(dir, e.Name))
		if err != nil {
			bad = append(bad, e.Name)
			continue
		}
		sha, b3 := Hash(data)
		if int64(len(data)) != e.Size || sha != e.SHA256 || b3 != e.BLAKE3 {
			bad = append(bad, e.Name)
		}
	}
	if len(bad) > 0 {
		return bad, fmt.Errorf("%w: %d of %d documents", ErrMismatch, len(bad), len(m.Documents))
	}
	return nil, nil
}
