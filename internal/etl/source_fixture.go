package etl

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BartekS5/tap-netsuite/pkg/models"
)

//go:embed fixtures/mock_data.json
var mockData []byte

// FixtureSource serves records from a JSON document shaped like
// {"Customer": [...], "SalesOrder": [...]}. It stands in for the live API in
// tests and offline runs.
type FixtureSource struct {
	records map[string][]models.Record
}

// NewFixtureSource parses a fixture document.
func NewFixtureSource(data []byte) (*FixtureSource, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records map[string][]models.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse fixture data: %w", err)
	}
	return &FixtureSource{records: records}, nil
}

// LoadFixtureSource reads a fixture document from path, or the built-in mock
// data set when path is empty.
func LoadFixtureSource(path string) (*FixtureSource, error) {
	if path == "" {
		return NewFixtureSource(mockData)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file '%s': %w", path, err)
	}
	return NewFixtureSource(data)
}

// Fetch returns copies of the stream's records; unknown streams are empty.
func (f *FixtureSource) Fetch(ctx context.Context, streamID string) ([]models.Record, error) {
	src := f.records[streamID]
	out := make([]models.Record, len(src))
	for i, rec := range src {
		out[i] = rec.Clone()
	}
	return out, nil
}
