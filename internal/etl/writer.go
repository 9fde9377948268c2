package etl

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// MessageWriter writes SCHEMA and RECORD messages, one JSON document per
// line, to a single ordered output.
type MessageWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewMessageWriter(w io.Writer) *MessageWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &MessageWriter{enc: enc}
}

// WriteSchema announces a stream.
func (w *MessageWriter) WriteSchema(stream catalog.StreamDescriptor) error {
	return w.write(models.SchemaMessage{
		Type:          models.MessageSchema,
		Stream:        stream.ID,
		Schema:        stream.Schema.Emitted(),
		KeyProperties: stream.KeyProperties,
	})
}

// WriteRecord emits one finalized record. A zero extractedAt is omitted.
func (w *MessageWriter) WriteRecord(streamID string, rec models.Record, extractedAt time.Time) error {
	msg := models.RecordMessage{
		Type:   models.MessageRecord,
		Stream: streamID,
		Record: rec,
	}
	if !extractedAt.IsZero() {
		ts := extractedAt.UTC()
		msg.TimeExtracted = &ts
	}
	return w.write(msg)
}

func (w *MessageWriter) write(msg interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
