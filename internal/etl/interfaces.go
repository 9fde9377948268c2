package etl

import (
	"context"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// Source returns every raw record of a stream in one call. Pagination, if
// any, is the source's business.
type Source interface {
	Fetch(ctx context.Context, streamID string) ([]models.Record, error)
}

// Loader pushes a stream's emitted records into a destination system.
type Loader interface {
	Name() string
	Load(ctx context.Context, stream catalog.StreamDescriptor, records []models.Record) error
}
