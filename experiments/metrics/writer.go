package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

type Writer struct {
	baseDir string
}

// NewWriter creates <root>/speedup/<run id>.
func NewWriter(root string, run uuid.UUID) (*Writer, error) {
	baseDir := filepath.Join(root, "speedup", run.String())
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteRun(run Run, configs []RunConfig) error {
	path := filepath.Join(w.baseDir, "run_configs.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create run configs file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"run", "start_time", "end_time", "id", "workers", "level", "depth"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write run configs header: %w", err)
	}

	for _, config := range configs {
		row := []string{
			run.ID.String(),
			run.StartTime.Format(time.RFC3339),
			run.EndTime.Format(time.RFC3339),
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Workers),
			strconv.Itoa(config.Level),
			strconv.Itoa(config.Depth),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write run config row: %w", err)
		}
	}

	return nil
}

// WriteSearchRecords writes search_records.csv and search_records.parquet.
func (w *Writer) WriteSearchRecords(records []SearchRecord) error {
	if err := w.writeSearchRecordsCSV(records); err != nil {
		return err
	}

	path := filepath.Join(w.baseDir, "search_records.parquet")
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, records,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "search_record_v1"),
	); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func (w *Writer) writeSearchRecordsCSV(records []SearchRecord) error {
	path := filepath.Join(w.baseDir, "search_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create search records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"config", "repeat", "search_id", "workers", "level", "depth", "start_time", "duration",
		"nodes", "tasks", "sent", "received", "local", "column", "value"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write search records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			strconv.Itoa(record.Config),
			strconv.Itoa(record.Repeat),
			record.SearchID,
			strconv.Itoa(record.Workers),
			strconv.Itoa(record.Level),
			strconv.Itoa(record.Depth),
			record.StartTime.Format(time.RFC3339Nano),
			record.Duration.String(),
			strconv.FormatInt(record.Nodes, 10),
			strconv.FormatInt(record.Tasks, 10),
			strconv.FormatInt(record.Sent, 10),
			strconv.FormatInt(record.Received, 10),
			strconv.FormatInt(record.Local, 10),
			strconv.Itoa(record.Column),
			strconv.FormatFloat(record.Value, 'f', -1, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write search record row: %w", err)
		}
	}

	return nil
}

func (w *Writer) WriteSummaries(summaries []Summary) error {
	path := filepath.Join(w.baseDir, "summaries.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summaries file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"level", "workers", "repeats", "mean_seconds", "stddev_seconds", "speedup", "efficiency"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write summaries header: %w", err)
	}

	for _, s := range summaries {
		row := []string{
			strconv.Itoa(s.Level),
			strconv.Itoa(s.Workers),
			strconv.Itoa(s.Repeats),
			strconv.FormatFloat(s.MeanSeconds, 'f', 6, 64),
			strconv.FormatFloat(s.StdDevSeconds, 'f', 6, 64),
			strconv.FormatFloat(s.Speedup, 'f', 4, 64),
			strconv.FormatFloat(s.Efficiency, 'f', 4, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	return nil
}
