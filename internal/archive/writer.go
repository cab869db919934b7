package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// Create packs the named files of srcDir into a .tar.xz archive at dstPath.
// Entries are stored under baseDir/ with modTime as their timestamp, so two
// runs over the same documents produce the same archive.
func Create(dstPath, srcDir, baseDir string, names []string, modTime time.Time) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if err := outFile.Close(); err != nil && retErr == nil {
			retErr = err
		}
		if retErr != nil {
			os.Remove(dstPath)
		}
	}()

	xw, err := xz.NewWriter(outFile)
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	if err := tw.WriteHeader(&tar.Header{
		Name:     baseDir + "/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
		ModTime:  modTime,
	}); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	for _, name := range names {
		if err := addFile(tw, filepath.Join(srcDir, name), baseDir+"/"+name, modTime); err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
	}

	return errors.Join(tw.Close(), xw.Close())
}

func addFile(tw *tar.Writer, path, name string, modTime time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     info.Size(),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
