package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/tap-netsuite/internal/catalog"
	"github.com/BartekS5/tap-netsuite/internal/config"
	"github.com/BartekS5/tap-netsuite/internal/etl"
	"github.com/BartekS5/tap-netsuite/internal/state"
	"github.com/BartekS5/tap-netsuite/pkg/database"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
)

func runDiscover(cmd *cobra.Command, opts *SyncOptions) error {
	if _, err := config.LoadConfig(opts.ConfigFile); err != nil {
		return err
	}
	cat, err := loadCatalog(opts.CatalogFile)
	if err != nil {
		return err
	}
	return cat.Dump(cmd.OutOrStdout())
}

// runSync performs one sync run: messages go to out, logs to errOut.
func runSync(ctx context.Context, opts *SyncOptions, out, errOut io.Writer) (*etl.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New(errOut).WithRun(uuid.NewString())

	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log.SetLevel(level)

	cat, err := loadCatalog(opts.CatalogFile)
	if err != nil {
		return nil, err
	}

	src, err := buildSource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	loaders, closeLoaders, err := buildLoaders(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer closeLoaders()

	var store state.Store = state.NewMemoryStore(state.New())
	if opts.StateFile != "" {
		store = state.NewFileStore(opts.StateFile)
	} else {
		log.Warn("No --state given. Nothing is selected and bookmarks are not persisted.")
	}

	engine := etl.NewEngine(src, etl.NewMessageWriter(out), store, log, loaders...)
	engine.DryRun = opts.DryRun
	return engine.Run(ctx, cat)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.LoadFile(path)
	}
	schemas, err := catalog.DefaultSchemas()
	if err != nil {
		return nil, err
	}
	return catalog.Discover(schemas), nil
}

func buildSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (etl.Source, error) {
	switch cfg.Source {
	case config.SourceFixture:
		log.Infof("Using fixture source %q", cfg.FixturePath)
		return etl.LoadFixtureSource(cfg.FixturePath)
	case config.SourceNetSuite:
		return etl.NewNetSuiteSource(ctx, etl.NetSuiteConfig{
			AccountID:      cfg.AccountID,
			BaseURL:        cfg.BaseURL,
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			Token:          cfg.Token,
			TokenSecret:    cfg.TokenSecret,
		}, log), nil
	default:
		return nil, &config.ConfigError{Key: "source", Err: fmt.Errorf("unknown source %q", cfg.Source)}
	}
}

// buildLoaders connects every configured sink. The returned func closes the
// connections and is safe to call when building failed part way.
func buildLoaders(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]etl.Loader, func(), error) {
	var loaders []etl.Loader
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, lc := range cfg.Loaders {
		switch lc.Type {
		case config.LoaderMongo:
			client, err := database.ConnectMongo(ctx, lc.URI, log)
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			closers = append(closers, func() { disconnectMongo(client, log) })
			loaders = append(loaders, etl.NewMongoLoader(client, lc.Database, log))

		case config.LoaderSQL:
			db, err := database.ConnectSQL(ctx, lc.Driver, lc.DSN, log)
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			closers = append(closers, func() { db.Close() })
			loader, err := etl.NewSQLLoader(db, lc.Driver, lc.TablePrefix, log)
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			loaders = append(loaders, loader)

		case config.LoaderCSV:
			loaders = append(loaders, etl.NewCSVLoader(lc.Dir, log))

		default:
			closeAll()
			return nil, func() {}, &config.ConfigError{Key: "loaders", Err: fmt.Errorf("unknown loader type %q", lc.Type)}
		}
	}
	return loaders, closeAll, nil
}

func disconnectMongo(client *mongo.Client, log *logger.Logger) {
	if err := client.Disconnect(context.Background()); err != nil {
		log.Errorf("Error disconnecting from MongoDB: %v", err)
	}
}
