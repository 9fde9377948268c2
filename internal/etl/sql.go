package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Name        string
	Quote       func(ident string) string
	Placeholder func(n int) string
	Types       map[models.FieldType]string
	KeyType     string
	CreateTable func(table, quoted, columns string) string
}

func createIfNotExists(_, quoted, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoted, columns)
}

var dialects = map[string]Dialect{
	"sqlserver": {
		Name:        "sqlserver",
		Quote:       func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		Types: map[models.FieldType]string{
			models.TypeString:   "NVARCHAR(MAX)",
			models.TypeNumber:   "FLOAT",
			models.TypeBoolean:  "BIT",
			models.TypeDateTime: "NVARCHAR(64)",
			models.TypeArray:    "NVARCHAR(MAX)",
		},
		KeyType: "NVARCHAR(255)",
		CreateTable: func(table, quoted, columns string) string {
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
				strings.ReplaceAll(table, "'", "''"), quoted, columns)
		},
	},
	"postgres": {
		Name:        "postgres",
		Quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Types: map[models.FieldType]string{
			models.TypeString:   "TEXT",
			models.TypeNumber:   "DOUBLE PRECISION",
			models.TypeBoolean:  "BOOLEAN",
			models.TypeDateTime: "TEXT",
			models.TypeArray:    "TEXT",
		},
		KeyType:     "VARCHAR(255)",
		CreateTable: createIfNotExists,
	},
	"mysql": {
		Name:        "mysql",
		Quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		Placeholder: func(int) string { return "?" },
		Types: map[models.FieldType]string{
			models.TypeString:   "TEXT",
			models.TypeNumber:   "DOUBLE",
			models.TypeBoolean:  "BOOLEAN",
			models.TypeDateTime: "VARCHAR(64)",
			models.TypeArray:    "TEXT",
		},
		KeyType:     "VARCHAR(255)",
		CreateTable: createIfNotExists,
	},
	"sqlite": {
		Name:        "sqlite",
		Quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		Placeholder: func(int) string { return "?" },
		Types: map[models.FieldType]string{
			models.TypeString:   "TEXT",
			models.TypeNumber:   "REAL",
			models.TypeBoolean:  "INTEGER",
			models.TypeDateTime: "TEXT",
			models.TypeArray:    "TEXT",
		},
		KeyType:     "TEXT",
		CreateTable: createIfNotExists,
	},
}

// DialectFor returns the dialect registered for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("no SQL dialect for driver %q", driver)
	}
	return d, nil
}

// SQLLoader upserts emitted records into one table per stream. Tables are
// created from the stream schema on first use; rows are matched on the
// stream's key properties.
type SQLLoader struct {
	DB          *sql.DB
	Dialect     Dialect
	TablePrefix string
	Log         *logger.Logger

	mu      sync.Mutex
	created map[string]bool
}

func NewSQLLoader(db *sql.DB, driver, tablePrefix string, log *logger.Logger) (*SQLLoader, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLLoader{
		DB:          db,
		Dialect:     d,
		TablePrefix: tablePrefix,
		Log:         log,
		created:     make(map[string]bool),
	}, nil
}

func (l *SQLLoader) Name() string { return "sql:" + l.Dialect.Name }

// TableName is the unquoted table a stream loads into.
func (l *SQLLoader) TableName(stream catalog.StreamDescriptor) string {
	return l.TablePrefix + stream.ID
}

func (l *SQLLoader) Load(ctx context.Context, stream catalog.StreamDescriptor, records []models.Record) error {
	if len(stream.KeyProperties) == 0 {
		return fmt.Errorf("stream %s has no key properties", stream.ID)
	}
	for _, key := range stream.KeyProperties {
		if !stream.Schema.Has(key) {
			return fmt.Errorf("key property %s is not declared in the %s schema", key, stream.ID)
		}
	}
	if err := l.ensureTable(ctx, stream); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, updated := 0, 0
	for i, rec := range records {
		exists, err := l.rowExists(ctx, tx, stream, rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if exists {
			err = l.updateRow(ctx, tx, stream, rec)
			updated++
		} else {
			err = l.insertRow(ctx, tx, stream, rec)
			inserted++
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	l.Log.Infof("SQL Loader %s: Inserted %d, Updated %d", l.TableName(stream), inserted, updated)
	return nil
}

func (l *SQLLoader) ensureTable(ctx context.Context, stream catalog.StreamDescriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	table := l.TableName(stream)
	if l.created[table] {
		return nil
	}

	keys := make(map[string]bool, len(stream.KeyProperties))
	for _, k := range stream.KeyProperties {
		keys[k] = true
	}

	var cols []string
	for _, field := range stream.Schema.FieldNames() {
		typ := l.Dialect.Types[stream.Schema[field]]
		if keys[field] {
			typ = l.Dialect.KeyType + " NOT NULL"
		}
		cols = append(cols, l.Dialect.Quote(field)+" "+typ)
	}
	var pk []string
	for _, k := range stream.KeyProperties {
		pk = append(pk, l.Dialect.Quote(k))
	}
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))

	query := l.Dialect.CreateTable(table, l.Dialect.Quote(table), strings.Join(cols, ", "))
	if _, err := l.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	l.created[table] = true
	return nil
}

// where builds the key-property predicate; placeholders start at n+1.
func (l *SQLLoader) where(stream catalog.StreamDescriptor, rec models.Record, n int) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}
	for _, key := range stream.KeyProperties {
		val, ok := rec[key]
		if !ok || val == nil {
			return "", nil, fmt.Errorf("missing key property %s", key)
		}
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = %s", l.Dialect.Quote(key), l.Dialect.Placeholder(n+len(args))))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (l *SQLLoader) rowExists(ctx context.Context, tx *sql.Tx, stream catalog.StreamDescriptor, rec models.Record) (bool, error) {
	where, args, err := l.where(stream, rec, 0)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s", l.Dialect.Quote(l.TableName(stream)), where)

	var one int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("error checking row existence: %w", err)
	}
	return true, nil
}

// columns returns the record's schema fields in a stable order.
func (l *SQLLoader) columns(stream catalog.StreamDescriptor, rec models.Record) ([]string, []interface{}) {
	var names []string
	var args []interface{}
	for _, field := range stream.Schema.FieldNames() {
		if val, ok := rec[field]; ok {
			names = append(names, field)
			args = append(args, val)
		}
	}
	return names, args
}

func (l *SQLLoader) insertRow(ctx context.Context, tx *sql.Tx, stream catalog.StreamDescriptor, rec models.Record) error {
	names, args := l.columns(stream, rec)
	quoted := make([]string, len(names))
	placeholders := make([]string, len(names))
	for i, n := range names {
		quoted[i] = l.Dialect.Quote(n)
		placeholders[i] = l.Dialect.Placeholder(i + 1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		l.Dialect.Quote(l.TableName(stream)), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error inserting: %w", err)
	}
	return nil
}

func (l *SQLLoader) updateRow(ctx context.Context, tx *sql.Tx, stream catalog.StreamDescriptor, rec models.Record) error {
	names, args := l.columns(stream, rec)
	setClauses := make([]string, len(names))
	for i, n := range names {
		setClauses[i] = fmt.Sprintf("%s = %s", l.Dialect.Quote(n), l.Dialect.Placeholder(i+1))
	}

	where, keyArgs, err := l.where(stream, rec, len(args))
	if err != nil {
		return err
	}
	args = append(args, keyArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		l.Dialect.Quote(l.TableName(stream)), strings.Join(setClauses, ", "), where)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error updating: %w", err)
	}
	return nil
}
