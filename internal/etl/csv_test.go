package etl

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVLoader_WritesHeaderAndRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	loader := NewCSVLoader(dir, logger.Discard())

	records := []models.Record{
		{"internalId": "1", "entityId": "Cust, One", "taxable": true, "balance": 1.5, "categories": "Retail, Wholesale", "lastModifiedDate": "2024-01-01T00:00:00Z"},
		{"internalId": "2", "balance": int64(3)},
	}
	require.NoError(t, loader.Load(context.Background(), customerStream(), records))

	rows := readCSV(t, loader.Path("Customer"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"balance", "categories", "entityId", "internalId", "lastModifiedDate", "taxable"}, rows[0])
	assert.Equal(t, []string{"1.5", "Retail, Wholesale", "Cust, One", "1", "2024-01-01T00:00:00Z", "true"}, rows[1])
	assert.Equal(t, []string{"3", "", "", "2", "", ""}, rows[2])
}

func TestCSVLoader_ReplacesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	loader := NewCSVLoader(dir, logger.Discard())
	ctx := context.Background()

	require.NoError(t, loader.Load(ctx, customerStream(), []models.Record{{"internalId": "1"}, {"internalId": "2"}}))
	require.NoError(t, loader.Load(ctx, customerStream(), []models.Record{{"internalId": "3"}}))

	rows := readCSV(t, loader.Path("Customer"))
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[1][3])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
