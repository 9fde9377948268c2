package etl

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/tap-netsuite/pkg/models"
)

func TestTransform_Customer(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	in := models.Record{
		"internalId":       "123",
		"email":            "CUST1@EXAMPLE.COM",
		"categories":       []interface{}{"Retail", "Wholesale"},
		"dateCreated":      "2023-01-01T00:00:00Z",
		"lastModifiedDate": "2024-01-01T00:00:00Z",
	}

	out, err := tr.Transform([]models.Record{in}, "Customer")
	require.NoError(t, err)
	require.Len(t, out, 1)

	rec := out[0]
	assert.Equal(t, "cust1@example.com", rec["email"])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rec["lastModifiedDate"])
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), rec["dateCreated"])
	assert.Equal(t, "Retail, Wholesale", rec["categories"])

	// Inputs stay untouched.
	assert.Equal(t, "CUST1@EXAMPLE.COM", in["email"])
	assert.Equal(t, "2024-01-01T00:00:00Z", in["lastModifiedDate"])
}

func TestTransform_SalesOrderTax(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	out, err := tr.Transform([]models.Record{{
		"internalId": "SO123",
		"subTotal":   100.0,
		"taxRate":    0.05,
		"items":      []interface{}{"Widget", "Gadget"},
		"tranDate":   "2023-01-01T00:00:00Z",
	}}, "SalesOrder")
	require.NoError(t, err)

	assert.Equal(t, 5.0, out[0]["totalTax"])
	assert.Equal(t, 100.0, out[0]["subTotal"])
	assert.Equal(t, 0.05, out[0]["taxRate"])
	assert.Equal(t, "Widget, Gadget", out[0]["items"])
}

func TestTransform_FlattenList(t *testing.T) {
	tr := NewTransformer(RuleTable{"Customer": {FlattenList("tags", " | ")}})

	out, err := tr.Transform([]models.Record{
		{"tags": []interface{}{"a", "b", "a"}},
		{"tags": []string{"x"}},
		{"tags": "already flat"},
		{"tags": nil},
	}, "Customer")
	require.NoError(t, err)

	assert.Equal(t, "a | b | a", out[0]["tags"])
	assert.Equal(t, "x", out[1]["tags"])
	assert.Equal(t, "already flat", out[2]["tags"])
	assert.Nil(t, out[3]["tags"])

	_, err = tr.Transform([]models.Record{{"tags": 7}}, "Customer")
	var trErr *TransformError
	assert.True(t, errors.As(err, &trErr))
}

func TestTransform_TaxFromJSONNumbers(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	out, err := tr.Transform([]models.Record{{
		"subTotal": json.Number("250"),
		"taxRate":  json.Number("0.1"),
	}}, "SalesOrder")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, out[0]["totalTax"], 1e-9)
}

func TestTransform_TaxNeedsBothInputs(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	out, err := tr.Transform([]models.Record{{"subTotal": 100.0}}, "SalesOrder")
	require.NoError(t, err)
	assert.NotContains(t, out[0], "totalTax")
}

func TestTransform_NonNumericTaxInput(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	_, err := tr.Transform([]models.Record{{"subTotal": "lots", "taxRate": 0.05}}, "SalesOrder")

	var trErr *TransformError
	require.True(t, errors.As(err, &trErr))
	assert.Equal(t, "subTotal", trErr.Field)
}

func TestTransform_BadDates(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
	}{
		{"date only", "2024-01-01"},
		{"fractional seconds", "2024-01-01T00:00:00.123Z"},
		{"offset", "2024-01-01T00:00:00+02:00"},
		{"garbage", "yesterday"},
		{"number", json.Number("1704067200")},
	}

	tr := NewTransformer(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Transform([]models.Record{{"lastModifiedDate": tt.value}}, "Customer")

			var dateErr *DateParseError
			require.True(t, errors.As(err, &dateErr))
			assert.Equal(t, "Customer", dateErr.Stream)
			assert.Equal(t, "lastModifiedDate", dateErr.Field)
			assert.Equal(t, tt.value, dateErr.Value)
		})
	}
}

func TestTransform_AbsentAndNullFieldsSkipped(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	out, err := tr.Transform([]models.Record{{"internalId": "1", "email": nil, "dateCreated": nil}}, "Customer")
	require.NoError(t, err)
	assert.Equal(t, models.Record{"internalId": "1", "email": nil, "dateCreated": nil}, out[0])
}

func TestTransform_UnknownStreamPassesThrough(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	in := models.Record{"lastModifiedDate": "not a date", "email": "UPPER@X.COM"}

	out, err := tr.Transform([]models.Record{in}, "Invoice")
	require.NoError(t, err)
	assert.Equal(t, in, out[0])
}

func TestTransform_Idempotent(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	in := []models.Record{{
		"subTotal":         100.0,
		"taxRate":          0.05,
		"createdDate":      "2023-01-01T00:00:00Z",
		"lastModifiedDate": "2024-01-01T00:00:00Z",
	}}

	once, err := tr.Transform(in, "SalesOrder")
	require.NoError(t, err)
	twice, err := tr.Transform(once, "SalesOrder")
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	customers := []models.Record{{"email": "Buyer@Example.com", "dateCreated": "2023-06-15T09:30:00Z", "categories": []interface{}{"Retail"}}}
	once, err = tr.Transform(customers, "Customer")
	require.NoError(t, err)
	twice, err = tr.Transform(once, "Customer")
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestTransform_EmailCaseConverges(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	var results []interface{}
	for _, email := range []string{"Buyer@Example.com", "BUYER@EXAMPLE.COM", "buyer@example.com"} {
		out, err := tr.Transform([]models.Record{{"email": email}}, "Customer")
		require.NoError(t, err)
		results = append(results, out[0]["email"])
	}
	assert.Equal(t, []interface{}{"buyer@example.com", "buyer@example.com", "buyer@example.com"}, results)
}

func TestTransform_NonStringEmail(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	_, err := tr.Transform([]models.Record{{"email": 42}}, "Customer")

	var trErr *TransformError
	require.True(t, errors.As(err, &trErr))
	assert.Equal(t, "email", trErr.Field)
}

func TestFinalize(t *testing.T) {
	rec := models.Record{
		"when":   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"tags":   []interface{}{"a", "b", "a"},
		"empty":  []interface{}{},
		"nested": map[string]interface{}{"k": "v"},
		"count":  json.Number("3"),
		"amount": json.Number("2.5"),
		"flag":   true,
		"none":   nil,
		"name":   "x",
	}

	out := Finalize(rec)

	assert.Equal(t, "2024-01-01T00:00:00Z", out["when"])
	assert.Equal(t, "a, b, a", out["tags"])
	assert.Equal(t, "", out["empty"])
	assert.Equal(t, `{"k":"v"}`, out["nested"])
	assert.Equal(t, int64(3), out["count"])
	assert.Equal(t, 2.5, out["amount"])
	assert.Equal(t, true, out["flag"])
	assert.Nil(t, out["none"])
	assert.Equal(t, "x", out["name"])

	require.NoError(t, NewValidator(replicatedStream("X", true)).ValidateRecord(models.Record{"internalId": "1", "v": out["tags"]}))
}

func TestFinalize_DateRoundTrip(t *testing.T) {
	tr := NewTransformer(DefaultRules())
	for _, s := range []string{"2024-01-01T00:00:00Z", "1999-12-31T23:59:59Z", "2024-02-29T12:30:45Z"} {
		out, err := tr.Transform([]models.Record{{"lastModifiedDate": s}}, "Customer")
		require.NoError(t, err)
		assert.Equal(t, s, Finalize(out[0])["lastModifiedDate"])
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator(replicatedStream("Customer", true))

	assert.NoError(t, v.ValidateRecord(models.Record{"internalId": "1", "n": 1.5}))
	assert.Error(t, v.ValidateRecord(models.Record{"lastModifiedDate": "2024-01-01T00:00:00Z"}))
	assert.Error(t, v.ValidateRecord(models.Record{"internalId": nil}))
	assert.Error(t, v.ValidateRecord(models.Record{"internalId": "1", "list": []interface{}{"a"}}))
}
