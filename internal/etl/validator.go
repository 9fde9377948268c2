package etl

import (
	"fmt"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

type Validator struct {
	Stream catalog.StreamDescriptor
}

func NewValidator(stream catalog.StreamDescriptor) *Validator {
	return &Validator{Stream: stream}
}

// ValidateRecord checks an emitted record: key properties must be present
// and every value must be a primitive.
func (v *Validator) ValidateRecord(rec models.Record) error {
	for _, key := range v.Stream.KeyProperties {
		if val, ok := rec[key]; !ok || val == nil {
			return fmt.Errorf("missing required key property: %s", key)
		}
	}
	for field, val := range rec {
		if !isPrimitive(val) {
			return fmt.Errorf("field %s holds non-primitive %T", field, val)
		}
	}
	return nil
}

func isPrimitive(val interface{}) bool {
	switch val.(type) {
	case nil, string, bool,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
