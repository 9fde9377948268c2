package etl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BartekS5/tap-netsuite/pkg/models"
	"github.com/BartekS5/tap-netsuite/pkg/utils"
)

// ListSeparator joins list elements when a list field is flattened, either by
// a FlattenList rule or by Finalize.
const ListSeparator = ", "

// Transformer normalizes raw records with a per-stream rule table.
type Transformer struct {
	Rules RuleTable
}

func NewTransformer(rules RuleTable) *Transformer {
	if rules == nil {
		rules = RuleTable{}
	}
	return &Transformer{Rules: rules}
}

// Transform applies the stream's rules to every record. Inputs are not
// modified; each output record holds every input field plus derived ones.
// Absent fields are skipped. A malformed date is a *DateParseError.
func (t *Transformer) Transform(records []models.Record, streamID string) ([]models.Record, error) {
	out := make([]models.Record, 0, len(records))
	for i, rec := range records {
		transformed, err := t.TransformRecord(streamID, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, transformed)
	}
	return out, nil
}

// TransformRecord applies the stream's rules to a single record.
func (t *Transformer) TransformRecord(streamID string, rec models.Record) (models.Record, error) {
	doc := rec.Clone()
	for _, rule := range t.Rules[streamID] {
		if err := applyRule(streamID, rule, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func applyRule(stream string, rule Rule, doc models.Record) error {
	switch rule.Kind {
	case RuleParseDate:
		val, ok := doc[rule.Field]
		if !ok || val == nil {
			return nil
		}
		switch v := val.(type) {
		case time.Time:
			return nil
		case string:
			parsed, err := utils.ParseWireTime(v)
			if err != nil {
				return &DateParseError{Stream: stream, Field: rule.Field, Value: v, Err: err}
			}
			doc[rule.Field] = parsed
		default:
			return &DateParseError{Stream: stream, Field: rule.Field, Value: v, Err: fmt.Errorf("unexpected type %T", v)}
		}

	case RuleLowercaseEmail:
		val, ok := doc[rule.Field]
		if !ok || val == nil {
			return nil
		}
		s, isString := val.(string)
		if !isString {
			return &TransformError{Stream: stream, Field: rule.Field, Err: fmt.Errorf("expected string, got %T", val)}
		}
		doc[rule.Field] = cases.Lower(language.Und).String(s)

	case RuleComputeTax:
		subTotal, ok := doc[rule.Field]
		if !ok || subTotal == nil {
			return nil
		}
		rate, ok := doc[rule.Rate]
		if !ok || rate == nil {
			return nil
		}
		st, err := utils.ConvertToFloat(subTotal)
		if err != nil {
			return &TransformError{Stream: stream, Field: rule.Field, Err: err}
		}
		r, err := utils.ConvertToFloat(rate)
		if err != nil {
			return &TransformError{Stream: stream, Field: rule.Rate, Err: err}
		}
		doc[rule.Out] = st * r

	case RuleFlattenList:
		val, ok := doc[rule.Field]
		if !ok || val == nil {
			return nil
		}
		switch v := val.(type) {
		case string:
		case []interface{}:
			doc[rule.Field] = utils.JoinValues(v, rule.Sep)
		case []string:
			doc[rule.Field] = strings.Join(v, rule.Sep)
		default:
			return &TransformError{Stream: stream, Field: rule.Field, Err: fmt.Errorf("expected list, got %T", val)}
		}

	default:
		return &TransformError{Stream: stream, Field: rule.Field, Err: fmt.Errorf("unknown rule %s", rule.Kind)}
	}
	return nil
}

// Finalize converts a transformed record into its emitted form: datetimes
// become RFC 3339 strings, lists are joined with ListSeparator, nested
// objects become compact JSON and JSON numbers become Go numbers. Every
// value of the result is a string, number, bool or nil.
func Finalize(rec models.Record) models.Record {
	out := make(models.Record, len(rec))
	for k, v := range rec {
		out[k] = finalizeValue(v)
	}
	return out
}

func finalizeValue(val interface{}) interface{} {
	switch v := val.(type) {
	case time.Time:
		return utils.FormatTime(v)
	case []interface{}:
		return utils.JoinValues(v, ListSeparator)
	case []string:
		return strings.Join(v, ListSeparator)
	case map[string]interface{}:
		return utils.Stringify(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
