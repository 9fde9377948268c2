package etl

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// MongoLoader upserts emitted records into one collection per stream,
// matching documents on the stream's key properties.
type MongoLoader struct {
	Client   *mongo.Client
	Database string
	Timeout  time.Duration
	Log      *logger.Logger
}

func NewMongoLoader(client *mongo.Client, database string, log *logger.Logger) *MongoLoader {
	return &MongoLoader{
		Client:   client,
		Database: database,
		Timeout:  30 * time.Second,
		Log:      log,
	}
}

func (m *MongoLoader) Name() string { return "mongo" }

func (m *MongoLoader) Load(ctx context.Context, stream catalog.StreamDescriptor, records []models.Record) error {
	coll := m.Client.Database(m.Database).Collection(stream.ID)

	writes, err := upsertModels(stream, records)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	res, err := coll.BulkWrite(ctx, writes)
	if err != nil {
		return fmt.Errorf("bulk write: %w", err)
	}
	m.Log.Infof("Mongo BulkWrite %s.%s: Match %d, Mod %d, Upsert %d",
		m.Database, stream.ID, res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}

func upsertModels(stream catalog.StreamDescriptor, records []models.Record) ([]mongo.WriteModel, error) {
	writes := make([]mongo.WriteModel, 0, len(records))
	for i, rec := range records {
		filter := bson.M{}
		for _, key := range stream.KeyProperties {
			val, ok := rec[key]
			if !ok || val == nil {
				return nil, fmt.Errorf("record %d: missing key property %s", i, key)
			}
			filter[key] = val
		}
		doc := bson.M{}
		for k, v := range rec {
			doc[k] = v
		}
		model := mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(bson.M{"$set": doc}).SetUpsert(true)
		writes = append(writes, model)
	}
	return writes, nil
}
