package etl

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/tap-netsuite/pkg/models"
)

func TestMessageWriter_Schema(t *testing.T) {
	out := &bytes.Buffer{}
	w := NewMessageWriter(out)

	stream := replicatedStream("Customer", true)
	stream.Schema["tags"] = models.TypeArray
	require.NoError(t, w.WriteSchema(stream))

	assert.JSONEq(t, `{
		"type": "SCHEMA",
		"stream": "Customer",
		"key_properties": ["internalId"],
		"schema": {"type": "object", "properties": {
			"internalId": {"type": ["null", "string"]},
			"tags": {"type": ["null", "string"]},
			"lastModifiedDate": {"type": ["null", "string"], "format": "date-time"}
		}}
	}`, out.String())
}

func TestMessageWriter_Record(t *testing.T) {
	out := &bytes.Buffer{}
	w := NewMessageWriter(out)

	extracted := time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	require.NoError(t, w.WriteRecord("Customer", models.Record{"internalId": "1", "note": "<b>&</b>"}, extracted))
	require.NoError(t, w.WriteRecord("Customer", models.Record{"internalId": "2"}, time.Time{}))

	msgs := messages(t, out)
	require.Len(t, msgs, 2)
	assert.Equal(t, "2024-06-01T12:00:00Z", msgs[0]["time_extracted"])
	assert.NotContains(t, msgs[1], "time_extracted")
	assert.NotContains(t, msgs[0], "version")
	assert.Contains(t, out.String(), "<b>&</b>")
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestMessageWriter_Error(t *testing.T) {
	w := NewMessageWriter(brokenWriter{})
	err := w.WriteRecord("Customer", models.Record{"internalId": "1"}, time.Time{})
	assert.ErrorContains(t, err, "broken pipe")
}
