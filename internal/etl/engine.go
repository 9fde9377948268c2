package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/internal/state"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
	"github.com/BartekS5/tap-netsuite/pkg/utils"
)

// Engine synchronizes the selected streams of a catalog: for each stream it
// emits the schema, fetches, transforms, emits records and commits bookmarks.
// Streams and records are processed strictly in sequence.
type Engine struct {
	Source      Source
	Transformer *Transformer
	Writer      *MessageWriter
	State       state.Store
	Loaders     []Loader
	Log         *logger.Logger
	DryRun      bool

	// Now stamps time_extracted; defaults to time.Now.
	Now func() time.Time
}

// StreamResult summarizes one stream of a run.
type StreamResult struct {
	Stream      string
	Records     int
	FetchFailed bool
	SinkErrors  int
	Bookmark    interface{}
	Duration    time.Duration
}

// RunResult summarizes a run.
type RunResult struct {
	Streams  []StreamResult
	Duration time.Duration
}

// Records returns the total number of emitted records.
func (r *RunResult) Records() int {
	total := 0
	for _, s := range r.Streams {
		total += s.Records
	}
	return total
}

func NewEngine(src Source, w *MessageWriter, store state.Store, log *logger.Logger, loaders ...Loader) *Engine {
	return &Engine{
		Source:      src,
		Transformer: NewTransformer(DefaultRules()),
		Writer:      w,
		State:       store,
		Loaders:     loaders,
		Log:         log,
		Now:         time.Now,
	}
}

// Run syncs every selected stream. The first unhandled error (a bad date,
// a failed message write or state persist) aborts the run; bookmarks that
// were already persisted stay valid for the next run.
func (e *Engine) Run(ctx context.Context, cat *catalog.Catalog) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	st, err := e.State.Read(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read state: %w", err)
	}

	selected := cat.Select(st)
	if len(selected) == 0 {
		e.Log.Warn("No streams selected. Add stream ids to selected_streams in the state file.")
		return result, nil
	}
	e.Log.Infof("Starting sync. Streams: %d, DryRun: %v", len(selected), e.DryRun)

	for _, stream := range selected {
		sr, err := e.syncStream(ctx, stream, st)
		result.Streams = append(result.Streams, sr)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("stream %s: %w", stream.ID, err)
		}
	}

	result.Duration = time.Since(start)
	e.Log.Infof("Sync finished. Records: %d. Duration: %s", result.Records(), result.Duration.Round(time.Millisecond))
	return result, nil
}

func (e *Engine) syncStream(ctx context.Context, stream catalog.StreamDescriptor, st *state.State) (StreamResult, error) {
	start := time.Now()
	res := StreamResult{Stream: stream.ID}
	log := e.Log.WithStream(stream.ID)
	log.Info("Syncing stream")

	if err := e.Writer.WriteSchema(stream); err != nil {
		return res, err
	}

	raw, err := e.Source.Fetch(ctx, stream.ID)
	if err != nil {
		var fetchErr *SourceFetchError
		if !errors.As(err, &fetchErr) {
			err = &SourceFetchError{Stream: stream.ID, Err: err}
		}
		log.Errorf("%v. Stream yields no records.", err)
		raw = nil
		res.FetchFailed = true
	}
	extractedAt := e.now()

	records, err := e.Transformer.Transform(raw, stream.ID)
	if err != nil {
		return res, err
	}

	key := stream.ReplicationKey
	validator := NewValidator(stream)
	emitted := make([]models.Record, 0, len(records))

	// Unsorted streams track the running maximum and persist once at the end.
	var maxRaw, maxOut interface{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		out := Finalize(rec)
		if err := validator.ValidateRecord(out); err != nil {
			log.Warnf("Record does not conform to schema: %v", err)
		}
		if err := e.Writer.WriteRecord(stream.ID, out, extractedAt); err != nil {
			return res, err
		}
		emitted = append(emitted, out)
		res.Records++

		if key == "" {
			continue
		}
		val, ok := rec[key]
		if !ok || val == nil {
			log.Debugf("Record has no %s; bookmark unchanged", key)
			continue
		}

		if stream.IsSorted() {
			st.SetBookmark(stream.ID, key, out[key])
			if err := e.State.Write(ctx, st); err != nil {
				return res, fmt.Errorf("failed to persist bookmark: %w", err)
			}
			res.Bookmark = out[key]
			continue
		}

		if maxRaw == nil {
			maxRaw, maxOut = val, out[key]
			continue
		}
		cmp, err := utils.CompareValues(val, maxRaw)
		if err != nil {
			return res, &TransformError{Stream: stream.ID, Field: key, Err: err}
		}
		if cmp > 0 {
			maxRaw, maxOut = val, out[key]
		}
	}

	if key != "" && !stream.IsSorted() && maxOut != nil {
		st.SetBookmark(stream.ID, key, maxOut)
		if err := e.State.Write(ctx, st); err != nil {
			return res, fmt.Errorf("failed to persist bookmark: %w", err)
		}
		res.Bookmark = maxOut
	}

	if !res.FetchFailed {
		res.SinkErrors = e.load(ctx, stream, emitted, log)
	}

	res.Duration = time.Since(start)
	rate := 0.0
	if res.Duration.Seconds() > 0 {
		rate = float64(res.Records) / res.Duration.Seconds()
	}
	log.Infof("Stream done. Records: %d. Rate: %.2f records/sec. Bookmark: %v", res.Records, rate, res.Bookmark)
	return res, nil
}

// load hands the emitted records to every loader. Failures are logged and
// counted; they never undo emitted messages or persisted bookmarks.
func (e *Engine) load(ctx context.Context, stream catalog.StreamDescriptor, records []models.Record, log *logger.Logger) int {
	failures := 0
	for _, l := range e.Loaders {
		if e.DryRun {
			log.Infof("[DRY RUN] Would load %d records into %s", len(records), l.Name())
			continue
		}
		if err := l.Load(ctx, stream, records); err != nil {
			log.Error((&SinkWriteError{Sink: l.Name(), Stream: stream.ID, Err: err}).Error())
			failures++
		}
	}
	return failures
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
