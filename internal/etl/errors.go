package etl

import "fmt"

// DateParseError is returned when a date/time field does not match the
// wire format. It aborts the run: a mis-parsed date would corrupt bookmarks.
type DateParseError struct {
	Stream string
	Field  string
	Value  interface{}
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("stream %s: field %s: cannot parse %v as datetime: %v", e.Stream, e.Field, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// TransformError is returned when a normalization rule cannot be applied
// to a present field (for example a non-numeric subtotal).
type TransformError struct {
	Stream string
	Field  string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("stream %s: field %s: %v", e.Stream, e.Field, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// SourceFetchError wraps a failed fetch. The engine degrades the stream to
// zero records instead of aborting the run.
type SourceFetchError struct {
	Stream string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch stream %s: %v", e.Stream, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// SinkWriteError wraps a failed load. Already emitted messages and persisted
// bookmarks are not rolled back.
type SinkWriteError struct {
	Sink   string
	Stream string
	Err    error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s failed to load stream %s: %v", e.Sink, e.Stream, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}
