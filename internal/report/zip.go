package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Zip packs the output directory into analysis_results_<id>.zip next to it
// and returns the archive file name. Paths inside the archive are relative to
// the output directory.
func (w *Writer) Zip(analysisID string) (string, error) {
	name := fmt.Sprintf("analysis_results_%s.zip", analysisID)
	zipPath := filepath.Join(filepath.Dir(w.dir), name)

	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	err = filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return err
		}
		rel = strings.ReplaceAll(rel, string(os.PathSeparator), "/")

		entry, err := zw.Create(rel)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		zw.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("packing archive: %w", err)
	}

	if err := zw.Close(); err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	return name, nil
}
