package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
	"github.com/BartekS5/tap-netsuite/pkg/utils"
)

// CSVLoader writes each stream to <Dir>/<stream>.csv, replacing any previous
// file. Columns follow the schema's sorted field names.
type CSVLoader struct {
	Dir string
	Log *logger.Logger
}

func NewCSVLoader(dir string, log *logger.Logger) *CSVLoader {
	return &CSVLoader{Dir: dir, Log: log}
}

func (c *CSVLoader) Name() string { return "csv" }

// Path is the file a stream is written to.
func (c *CSVLoader) Path(streamID string) string {
	return filepath.Join(c.Dir, streamID+".csv")
}

func (c *CSVLoader) Load(ctx context.Context, stream catalog.StreamDescriptor, records []models.Record) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := c.Path(stream.ID)
	tmp, err := os.CreateTemp(c.Dir, stream.ID+"-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	header := stream.Schema.FieldNames()
	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, field := range header {
			row[i] = csvValue(rec[field])
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	c.Log.Infof("CSV Loader: wrote %d records to %s", len(records), path)
	return nil
}

func csvValue(val interface{}) string {
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return utils.Stringify(val)
}
