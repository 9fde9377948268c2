package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/tap-netsuite/internal/state"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

func TestDefaultSchemas(t *testing.T) {
	schemas, err := DefaultSchemas()
	require.NoError(t, err)
	require.Contains(t, schemas, "Customer")
	require.Contains(t, schemas, "SalesOrder")

	assert.Equal(t, models.TypeDateTime, schemas["Customer"]["lastModifiedDate"])
	assert.Equal(t, models.TypeBoolean, schemas["Customer"]["taxable"])
	assert.Equal(t, models.TypeNumber, schemas["SalesOrder"]["subTotal"])
	assert.Equal(t, models.TypeArray, schemas["SalesOrder"]["items"])
}

func TestLoadSchemas_Malformed(t *testing.T) {
	fsys := fstest.MapFS{
		"Customer.json": {Data: []byte(`{"type":"object","properties":{"email":{"type":"string"}}}`)},
		"Broken.json":   {Data: []byte(`{"type": "object", "properties": `)},
	}

	_, err := LoadSchemas(fsys)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "Broken", loadErr.StreamID)
	assert.Contains(t, err.Error(), "Broken")
}

func TestLoadSchemas_UnknownType(t *testing.T) {
	fsys := fstest.MapFS{
		"Odd.json": {Data: []byte(`{"properties":{"blob":{"type":"object"}}}`)},
	}
	_, err := LoadSchemas(fsys)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "Odd", loadErr.StreamID)
}

func TestLoadSchemas_IgnoresOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"README.md":     {Data: []byte("not a schema")},
		"Customer.json": {Data: []byte(`{"properties":{"internalId":{"type":["null","string"]}}}`)},
	}
	schemas, err := LoadSchemas(fsys)
	require.NoError(t, err)
	assert.Len(t, schemas, 1)
}

func TestDiscover(t *testing.T) {
	schemas, err := DefaultSchemas()
	require.NoError(t, err)

	c := Discover(schemas)
	streams := c.Streams()
	require.Len(t, streams, 2)
	assert.Equal(t, "Customer", streams[0].ID)
	assert.Equal(t, "SalesOrder", streams[1].ID)

	for _, s := range streams {
		assert.Equal(t, []string{"internalId"}, s.KeyProperties)
		assert.Empty(t, s.ReplicationKey)
		assert.True(t, s.IsSorted())
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	return Discover(map[string]models.Schema{
		"Customer":   {"internalId": models.TypeString},
		"SalesOrder": {"internalId": models.TypeString},
	})
}

func TestSelect(t *testing.T) {
	c := testCatalog(t)

	st := state.New()
	st.SelectedStreams = []string{"Customer"}
	selected := c.Select(st)
	require.Len(t, selected, 1)
	assert.Equal(t, "Customer", selected[0].ID)

	st.SelectedStreams = []string{}
	assert.Empty(t, c.Select(st))

	assert.Empty(t, c.Select(state.New()), "missing selection list selects nothing")
	assert.Empty(t, c.Select(nil))
}

func TestSelect_UnknownStreamIgnored(t *testing.T) {
	c := testCatalog(t)
	st := state.New()
	st.SelectedStreams = []string{"Invoice", "SalesOrder"}

	selected := c.Select(st)
	require.Len(t, selected, 1)
	assert.Equal(t, "SalesOrder", selected[0].ID)
}

func TestNew_Invariants(t *testing.T) {
	schema := models.Schema{"internalId": models.TypeString, "lastModifiedDate": models.TypeDateTime}

	_, err := New([]StreamDescriptor{{ID: "Customer", Schema: schema}})
	assert.ErrorIs(t, err, ErrInvalidCatalog, "empty key properties")

	_, err = New([]StreamDescriptor{{ID: "Customer", Schema: schema, KeyProperties: []string{"internalId"}, ReplicationKey: "updatedAt"}})
	assert.ErrorIs(t, err, ErrInvalidCatalog, "undeclared replication key")

	d := StreamDescriptor{ID: "Customer", Schema: schema, KeyProperties: []string{"internalId"}}
	_, err = New([]StreamDescriptor{d, d})
	assert.ErrorIs(t, err, ErrInvalidCatalog, "duplicate id")
}

func TestDumpLoadRoundTrip(t *testing.T) {
	schemas, err := DefaultSchemas()
	require.NoError(t, err)
	original := Discover(schemas)

	var buf bytes.Buffer
	require.NoError(t, original.Dump(&buf))
	assert.Contains(t, buf.String(), `"tap_stream_id": "Customer"`)
	assert.Contains(t, buf.String(), `"format": "date-time"`)

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, original.Streams(), loaded.Streams())
}

func TestLoad_ReplicationSettings(t *testing.T) {
	doc := `{"streams": [{
		"tap_stream_id": "SalesOrder",
		"schema": {"type": "object", "properties": {
			"internalId": {"type": ["null", "string"]},
			"lastModifiedDate": {"type": ["null", "string"], "format": "date-time"}
		}},
		"key_properties": ["internalId"],
		"replication_key": "lastModifiedDate",
		"is_sorted": false
	}]}`

	c, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	d, ok := c.Get("SalesOrder")
	require.True(t, ok)
	assert.Equal(t, "SalesOrder", d.Stream)
	assert.Equal(t, "lastModifiedDate", d.ReplicationKey)
	assert.False(t, d.IsSorted())
}
