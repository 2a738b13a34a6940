package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Veraticus/adoption-forecast/internal/model"
)

// Paths locates the two CSV reports.
type Paths struct {
	Results    string
	Statistics string
}

// WriteCSV writes a header and records as CSV.
func WriteCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// WriteFiles writes both reports. Each is staged in a temporary file next to
// its destination; nothing is renamed into place unless both were staged.
func WriteFiles(paths Paths, results *Results, stats []model.StatRow) error {
	resultsTmp, err := stageCSV(paths.Results, results.Header(), results.Records())
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	defer func() { _ = os.Remove(resultsTmp) }()

	statsTmp, err := stageCSV(paths.Statistics, StatisticsHeader(), StatisticsRecords(stats))
	if err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	defer func() { _ = os.Remove(statsTmp) }()

	if err := os.Rename(resultsTmp, paths.Results); err != nil {
		return fmt.Errorf("failed to rename results file: %w", err)
	}
	if err := os.Rename(statsTmp, paths.Statistics); err != nil {
		return fmt.Errorf("failed to rename statistics file: %w", err)
	}
	return nil
}

func stageCSV(path string, header []string, records [][]string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	writeErr := WriteCSV(f, header, records)
	chmodErr := f.Chmod(0644)
	closeErr := f.Close()
	if err := errors.Join(writeErr, chmodErr, closeErr); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
