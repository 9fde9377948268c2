package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BartekS5/tap-netsuite/pkg/logger"
)

// Drivers lists the database/sql driver names a SQL sink may use.
var Drivers = []string{"sqlserver", "postgres", "mysql", "sqlite"}

// SupportedDriver reports whether name is one of Drivers.
func SupportedDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

func ConnectSQL(ctx context.Context, driver, dsn string, log *logger.Logger) (*sql.DB, error) {
	if !SupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single connection keeps in-memory databases shared across calls.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", driver, err)
	}

	log.Infof("Successfully connected to %s database.", driver)
	return db, nil
}

func ConnectMongo(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	log.Info("Successfully connected to MongoDB.")
	return client, nil
}
