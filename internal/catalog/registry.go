// Package catalog turns static schema declarations into the tap's catalog
// and decides which streams a run synchronizes.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BartekS5/tap-netsuite/pkg/models"
)

//go:embed schemas/*.json
var embedded embed.FS

// SchemaLoadError reports a declaration that could not be parsed.
type SchemaLoadError struct {
	StreamID string
	Err      error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema for stream '%s': %v", e.StreamID, e.Err)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Err
}

// LoadSchemas reads one <StreamID>.json declaration per stream from the root
// of fsys. Files without the .json extension are ignored.
func LoadSchemas(fsys fs.FS) (map[string]models.Schema, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list schema declarations: %w", err)
	}

	schemas := make(map[string]models.Schema)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		streamID := strings.TrimSuffix(entry.Name(), ".json")

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, &SchemaLoadError{StreamID: streamID, Err: err}
		}

		var schema models.Schema
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, &SchemaLoadError{StreamID: streamID, Err: err}
		}
		schemas[streamID] = schema
	}
	return schemas, nil
}

// DefaultSchemas loads the declarations compiled into the binary.
func DefaultSchemas() (map[string]models.Schema, error) {
	sub, err := fs.Sub(embedded, "schemas")
	if err != nil {
		return nil, err
	}
	return LoadSchemas(sub)
}
