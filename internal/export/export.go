// Package export writes result rows to timestamped CSV, JSON and YAML files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pweiskircher/buganize/internal/contracts"
)

// pattern: Imperative Shell

const timestampLayout = "20060102_150405"

// FileName returns the export file name for one format at a moment.
func FileName(format contracts.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", contracts.DefaultExportPrefix, now.Format(timestampLayout), format)
}

// Save writes rows once per format into dir and returns the written paths
// in format order. CSV is skipped when there are no rows since it has no
// header to write.
func Save(dir string, formats []contracts.ExportFormat, rows []Row, now time.Time) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}

	var written []string
	seen := map[contracts.ExportFormat]struct{}{}
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}

		data, ok, err := Encode(format, rows)
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}

		path := filepath.Join(dir, FileName(format, now))
		if err := writeFileAtomic(path, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s export: %w", format, err)
		}
		written = append(written, path)
	}

	return written, nil
}

// Encode renders rows in one format. ok is false when the format produces
// no output for the given rows.
func Encode(format contracts.ExportFormat, rows []Row) ([]byte, bool, error) {
	switch format {
	case contracts.ExportFormatCSV:
		if len(rows) == 0 {
			return nil, false, nil
		}
		data, err := encodeCSV(rows)
		return data, err == nil, err
	case contracts.ExportFormatJSON:
		if rows == nil {
			rows = []Row{}
		}
		data, err := json.MarshalIndent(rows, "", "    ")
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode JSON export: %w", err)
		}
		return append(data, '\n'), true, nil
	case contracts.ExportFormatYAML:
		if rows == nil {
			rows = []Row{}
		}
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(rows); err != nil {
			return nil, false, fmt.Errorf("failed to encode YAML export: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, false, fmt.Errorf("failed to encode YAML export: %w", err)
		}
		return buf.Bytes(), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported export format %q", format)
	}
}

// encodeCSV takes its header from the first row; later rows are matched
// by column name.
func encodeCSV(rows []Row) ([]byte, error) {
	header := rows[0].Columns()

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to encode CSV export: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for index, column := range header {
			value, _ := row.Get(column)
			record[index] = Cell{Column: column, Value: value}.String()
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to encode CSV export: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode CSV export: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(temp.Name()) }()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		return err
	}
	if err := temp.Chmod(perm); err != nil {
		_ = temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}

	return os.Rename(temp.Name(), path)
}
