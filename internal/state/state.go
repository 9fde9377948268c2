// Package state holds the tap's incremental bookmarks and persists them
// between runs.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	keyBookmarks       = "bookmarks"
	keySelectedStreams = "selected_streams"
)

// State is the persisted sync state:
//
//	{"bookmarks": {stream: {field: value}}, "selected_streams": [stream, ...]}
//
// Top-level keys the tap does not know about are kept so a read-modify-write
// cycle does not drop them. Numeric bookmark values decode as json.Number.
type State struct {
	Bookmarks       map[string]map[string]any
	SelectedStreams []string

	extra map[string]json.RawMessage
	// selected_streams was present in the input as null.
	nullSelection bool
}

// New returns an empty state.
func New() *State {
	return &State{Bookmarks: make(map[string]map[string]any)}
}

// Bookmark returns the stored value of field for stream.
func (s *State) Bookmark(stream, field string) (any, bool) {
	fields, ok := s.Bookmarks[stream]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// SetBookmark overwrites the value of field for stream.
func (s *State) SetBookmark(stream, field string, value any) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]any)
	}
	fields := s.Bookmarks[stream]
	if fields == nil {
		fields = make(map[string]any)
		s.Bookmarks[stream] = fields
	}
	fields[field] = value
}

// IsSelected reports whether stream is in the explicit selection list.
func (s *State) IsSelected(stream string) bool {
	for _, id := range s.SelectedStreams {
		if id == stream {
			return true
		}
	}
	return false
}

func (s *State) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.extra)+2)
	for k, v := range s.extra {
		doc[k] = v
	}
	bookmarks := s.Bookmarks
	if bookmarks == nil {
		bookmarks = map[string]map[string]any{}
	}
	doc[keyBookmarks] = bookmarks
	if s.SelectedStreams != nil || s.nullSelection {
		doc[keySelectedStreams] = s.SelectedStreams
	}
	return json.Marshal(doc)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	parsed := New()
	if raw, ok := doc[keyBookmarks]; ok {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&parsed.Bookmarks); err != nil {
			return fmt.Errorf("invalid %s: %w", keyBookmarks, err)
		}
		if parsed.Bookmarks == nil {
			parsed.Bookmarks = make(map[string]map[string]any)
		}
		delete(doc, keyBookmarks)
	}
	if raw, ok := doc[keySelectedStreams]; ok {
		if err := json.Unmarshal(raw, &parsed.SelectedStreams); err != nil {
			return fmt.Errorf("invalid %s: %w", keySelectedStreams, err)
		}
		parsed.nullSelection = parsed.SelectedStreams == nil
		delete(doc, keySelectedStreams)
	}
	if len(doc) > 0 {
		parsed.extra = doc
	}

	*s = *parsed
	return nil
}
