package models

import "time"

// Record is a single row flowing through the tap. Raw records come straight
// from a source; transformed records carry normalized values.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Message types written to the output stream.
const (
	MessageSchema = "SCHEMA"
	MessageRecord = "RECORD"
)

// SchemaMessage announces a stream's schema before any of its records.
type SchemaMessage struct {
	Type          string   `json:"type"`
	Stream        string   `json:"stream"`
	Schema        Schema   `json:"schema"`
	KeyProperties []string `json:"key_properties"`
}

// RecordMessage carries one transformed record.
type RecordMessage struct {
	Type          string     `json:"type"`
	Stream        string     `json:"stream"`
	Record        Record     `json:"record"`
	Version       *int64     `json:"version,omitempty"`
	TimeExtracted *time.Time `json:"time_extracted,omitempty"`
}
