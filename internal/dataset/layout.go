package dataset

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File names inside an extracted per-round dataset directory.
const (
	TrainingFile   = "training_data.csv"
	TournamentFile = "tournament_data.csv"
)

// Layout resolves the on-disk locations of per-round datasets under a data
// directory, following the <data_directory>/<prefix>_<round> convention.
type Layout struct {
	DataDir string
	Prefix  string
}

// Dir returns the dataset directory for a round.
func (l Layout) Dir(round int) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("%s_%d", l.Prefix, round))
}

// ZipPath returns the archive path for a round's dataset download.
func (l Layout) ZipPath(round int) string {
	return l.Dir(round) + ".zip"
}

// TrainingPath returns the training table path for a round.
func (l Layout) TrainingPath(round int) string {
	return filepath.Join(l.Dir(round), TrainingFile)
}

// TournamentPath returns the tournament table path for a round.
func (l Layout) TournamentPath(round int) string {
	return filepath.Join(l.Dir(round), TournamentFile)
}

// Extract unpacks a round's downloaded archive into its dataset directory.
func (l Layout) Extract(round int) error {
	return unzip(l.ZipPath(round), l.Dir(round))
}

// Remove deletes a round's archive and extracted directory. Used when a
// download turns out not to contain new data and will be re-fetched.
func (l Layout) Remove(round int) error {
	if err := os.Remove(l.ZipPath(round)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove dataset archive: %w", err)
	}
	if err := os.RemoveAll(l.Dir(round)); err != nil {
		return fmt.Errorf("remove dataset directory: %w", err)
	}
	return nil
}

// unzip extracts an archive into destDir, flattening any single top-level
// directory the archive may carry so the tables land directly in destDir.
func unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open dataset archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if strings.HasPrefix(name, ".") {
			continue
		}
		dest := filepath.Join(destDir, name)

		if err := extractFile(f, dest); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
