package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/padsense/vitals/internal/auth"
	"github.com/padsense/vitals/internal/broadcast"
	cfgpkg "github.com/padsense/vitals/internal/config"
	"github.com/padsense/vitals/internal/ingest"
	"github.com/padsense/vitals/internal/metrics"
	"github.com/padsense/vitals/internal/reading"
	"github.com/padsense/vitals/internal/retention"
	pebblestore "github.com/padsense/vitals/internal/storage/pebble"
	"github.com/padsense/vitals/internal/subject"
	logpkg "github.com/padsense/vitals/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage, config, and the ingestion services for a
// single-node instance.
type Runtime struct {
	db       *pebblestore.DB
	config   cfgpkg.Config
	logger   logpkg.Logger
	metrics  *metrics.Metrics
	store    *reading.Store
	registry *subject.Registry
	tokens   *auth.StaticTokens
	hub      *broadcast.Hub
	ingest   *ingest.Service
}

// Open initializes storage and wires all services.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}

	m := metrics.New()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       m.NewStorageHook(),
	})
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	store := reading.NewStore(db)
	registry := subject.NewRegistry(db)
	tokens := auth.NewStaticTokens(cfg.AuthTokens)

	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, logger)
	hub.OnDrop = func(string) { m.BroadcastDropped.Inc() }

	policy := retention.Policy{
		MaxAge:   cfg.Retention.MaxAge(),
		MaxCount: cfg.Retention.MaxCount,
	}
	engine := retention.NewEngine(policy, store)

	svc := ingest.New(ingest.Options{
		Store:          store,
		Registry:       registry,
		Directory:      tokens,
		Retention:      engine,
		Broadcast:      hub,
		Logger:         logger,
		Metrics:        m,
		DefaultPatient: cfg.DefaultPatientID,
		OpTimeout:      cfg.Storage.OpTimeout(),
	})

	return &Runtime{
		db:       db,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		store:    store,
		registry: registry,
		tokens:   tokens,
		hub:      hub,
		ingest:   svc,
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// Ingest returns the ingestion service.
func (r *Runtime) Ingest() *ingest.Service { return r.ingest }

// Registry returns the patient registry.
func (r *Runtime) Registry() *subject.Registry { return r.registry }

// Hub returns the live fan-out hub.
func (r *Runtime) Hub() *broadcast.Hub { return r.hub }

// Authenticator returns the credential resolver.
func (r *Runtime) Authenticator() auth.Authenticator { return r.tokens }

// Metrics returns the metrics bundle.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
