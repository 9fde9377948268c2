package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BartekS5/tap-netsuite/internal/state"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// DefaultKeyProperty is the identifier field every NetSuite record carries.
const DefaultKeyProperty = "internalId"

// ErrInvalidCatalog is wrapped by every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// StreamDescriptor describes one stream the tap can produce.
type StreamDescriptor struct {
	ID             string        `json:"tap_stream_id"`
	Stream         string        `json:"stream"`
	Schema         models.Schema `json:"schema"`
	KeyProperties  []string      `json:"key_properties"`
	ReplicationKey string        `json:"replication_key,omitempty"`

	// Sorted declares that the source returns records in non-decreasing
	// replication-key order. Nil means true.
	Sorted *bool `json:"is_sorted,omitempty"`
}

// IsSorted reports whether bookmarks may advance per record.
func (d StreamDescriptor) IsSorted() bool {
	return d.Sorted == nil || *d.Sorted
}

// Validate checks the descriptor invariants.
func (d StreamDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: stream without tap_stream_id", ErrInvalidCatalog)
	}
	if len(d.KeyProperties) == 0 {
		return fmt.Errorf("%w: stream '%s' has no key properties", ErrInvalidCatalog, d.ID)
	}
	if d.ReplicationKey != "" && !d.Schema.Has(d.ReplicationKey) {
		return fmt.Errorf("%w: stream '%s' replication key '%s' is not declared in its schema",
			ErrInvalidCatalog, d.ID, d.ReplicationKey)
	}
	return nil
}

// Catalog is the set of streams keyed by id. It is read-only during a run.
type Catalog struct {
	streams []StreamDescriptor
	byID    map[string]int
}

// New builds a catalog from descriptors, rejecting duplicates and invalid
// descriptors. Streams are kept sorted by id.
func New(descriptors []StreamDescriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(descriptors))}
	sorted := append([]StreamDescriptor(nil), descriptors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, d := range sorted {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stream '%s'", ErrInvalidCatalog, d.ID)
		}
		if d.Stream == "" {
			d.Stream = d.ID
		}
		c.byID[d.ID] = len(c.streams)
		c.streams = append(c.streams, d)
	}
	return c, nil
}

// Discover builds the catalog from loaded schemas. Every stream is keyed by
// DefaultKeyProperty and has no replication key.
func Discover(schemas map[string]models.Schema) *Catalog {
	descriptors := make([]StreamDescriptor, 0, len(schemas))
	for id, schema := range schemas {
		descriptors = append(descriptors, StreamDescriptor{
			ID:            id,
			Stream:        id,
			Schema:        schema,
			KeyProperties: []string{DefaultKeyProperty},
		})
	}
	// Discovered descriptors satisfy Validate by construction.
	c, _ := New(descriptors)
	return c
}

// Streams returns all descriptors in catalog order.
func (c *Catalog) Streams() []StreamDescriptor {
	return append([]StreamDescriptor(nil), c.streams...)
}

// Get returns the descriptor for id.
func (c *Catalog) Get(id string) (StreamDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return StreamDescriptor{}, false
	}
	return c.streams[i], true
}

// Select returns the streams explicitly listed in st.SelectedStreams, in
// catalog order. No list means no streams: selection is never implicit.
func (c *Catalog) Select(st *state.State) []StreamDescriptor {
	if st == nil || len(st.SelectedStreams) == 0 {
		return nil
	}
	var selected []StreamDescriptor
	for _, d := range c.streams {
		if st.IsSelected(d.ID) {
			selected = append(selected, d)
		}
	}
	return selected
}

type document struct {
	Streams []StreamDescriptor `json:"streams"`
}

// Dump writes the catalog document as indented JSON.
func (c *Catalog) Dump(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Streams: c.streams})
}

// Load parses a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(doc.Streams)
}

// LoadFile reads a catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file '%s': %w", path, err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file '%s': %w", path, err)
	}
	return c, nil
}
