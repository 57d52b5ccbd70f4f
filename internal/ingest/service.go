package ingest

import (
	"context"
	"math"
	"time"

	"github.com/padsense/vitals/internal/auth"
	"github.com/padsense/vitals/internal/errs"
	"github.com/padsense/vitals/internal/metrics"
	"github.com/padsense/vitals/internal/reading"
	"github.com/padsense/vitals/internal/retention"
	"github.com/padsense/vitals/internal/subject"
	"github.com/padsense/vitals/pkg/id"
	logpkg "github.com/padsense/vitals/pkg/log"
)

// RawReading is the inbound payload before validation. Temperature and
// humidity arrive fractional from the pad hardware and are normalized to
// integers by rounding half away from zero.
type RawReading struct {
	Pressure    *int
	Temperature *float64
	Humidity    *float64
}

// Broadcaster publishes an accepted reading to the patient's live channel.
type Broadcaster interface {
	Publish(reading.Reading)
}

// Options wires the service's collaborators.
type Options struct {
	Store          *reading.Store
	Registry       *subject.Registry
	Directory      auth.Directory
	Retention      *retention.Engine
	Broadcast      Broadcaster
	Logger         logpkg.Logger
	Metrics        *metrics.Metrics
	DefaultPatient string
	// OpTimeout bounds each storage call made on the request path.
	OpTimeout time.Duration
}

// Service accepts readings and serves recent-history queries.
type Service struct {
	store          *reading.Store
	registry       *subject.Registry
	directory      auth.Directory
	retention      *retention.Engine
	broadcast      Broadcaster
	logger         logpkg.Logger
	metrics        *metrics.Metrics
	defaultPatient string
	opTimeout      time.Duration
}

// New constructs the service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		store:          opts.Store,
		registry:       opts.Registry,
		directory:      opts.Directory,
		retention:      opts.Retention,
		broadcast:      opts.Broadcast,
		logger:         logger.WithComponent("ingest"),
		metrics:        opts.Metrics,
		defaultPatient: opts.DefaultPatient,
		opTimeout:      timeout,
	}
}

// logFields prefixes the request correlation id when the context carries one.
func logFields(ctx context.Context, fields ...logpkg.Field) []logpkg.Field {
	if rid, ok := id.FromContext(ctx); ok {
		return append([]logpkg.Field{logpkg.Str("request_id", rid.String())}, fields...)
	}
	return fields
}

// roundHalfAway rounds half away from zero: 23.5 → 24, -2.5 → -3.
func roundHalfAway(v float64) int { return int(math.Round(v)) }

// validate normalizes the raw payload into a Sample.
func validate(raw RawReading) (reading.Sample, error) {
	if raw.Pressure == nil {
		return reading.Sample{}, errs.Validation("pressure is required")
	}
	sample := reading.Sample{Pressure: *raw.Pressure}
	if raw.Temperature != nil {
		t := roundHalfAway(*raw.Temperature)
		sample.Temperature = &t
	}
	if raw.Humidity != nil {
		h := roundHalfAway(*raw.Humidity)
		sample.Humidity = &h
	}
	return sample, nil
}

// resolvePatient determines the owning patient. An authenticated principal
// binds to exactly one patient and overrides every hint; unauthenticated
// requests walk the fallback chain. Either way the patient must exist.
func (s *Service) resolvePatient(ctx context.Context, principal *auth.Principal, hints Hints) (string, error) {
	var patient string
	if principal != nil {
		bound, ok := s.directory.PatientFor(ctx, *principal)
		if !ok {
			return "", errs.NotFound("no patient bound to principal")
		}
		patient = bound
	} else {
		hinted, _, err := s.resolveHinted(hints)
		if err != nil {
			return "", err
		}
		patient = hinted
	}
	exists, err := s.registry.Exists(patient)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errs.NotFound("patient %q not found", patient)
	}
	return patient, nil
}

// Ingest runs the acceptance pipeline and returns the persisted reading.
func (s *Service) Ingest(ctx context.Context, principal *auth.Principal, raw RawReading) (reading.Reading, error) {
	return s.IngestHinted(ctx, principal, raw, Hints{})
}

// IngestHinted is Ingest with unauthenticated patient hints attached.
func (s *Service) IngestHinted(ctx context.Context, principal *auth.Principal, raw RawReading, hints Hints) (reading.Reading, error) {
	sample, err := validate(raw)
	if err != nil {
		s.reject("validation")
		return reading.Reading{}, err
	}

	patient, err := s.resolvePatient(ctx, principal, hints)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			s.reject("patient_not_found")
		} else {
			s.reject("validation")
		}
		return reading.Reading{}, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	r, err := s.store.Append(opCtx, patient, sample)
	cancel()
	if err != nil {
		s.reject("storage")
		return reading.Reading{}, err
	}
	if s.metrics != nil {
		s.metrics.ReadingsAccepted.WithLabelValues(patient).Inc()
	}
	s.logger.Debug("reading accepted", logFields(ctx,
		logpkg.Str("patient", patient),
		logpkg.Uint64("id", r.ID))...)

	// The reading is durable; broadcast and prune run even when the producer
	// has gone away, and their failures stay out of the response.
	if s.broadcast != nil {
		s.broadcast.Publish(r)
	}
	s.prune(context.WithoutCancel(ctx), patient, r.TimestampMs)

	return r, nil
}

// prune applies retention after an accepted reading. Failures are logged and
// counted, never surfaced.
func (s *Service) prune(ctx context.Context, patient string, nowMs int64) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	res, err := s.retention.Prune(opCtx, patient, nowMs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PruneFailures.Inc()
		}
		s.logger.Warn("prune failed after accepted reading", logFields(ctx,
			logpkg.Str("patient", patient), logpkg.Err(err))...)
		return
	}
	if s.metrics != nil {
		if res.AgedOut > 0 {
			s.metrics.PruneDeleted.WithLabelValues("age").Add(float64(res.AgedOut))
		}
		if res.Evicted > 0 {
			s.metrics.PruneDeleted.WithLabelValues("count").Add(float64(res.Evicted))
		}
	}
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.ReadingsRejected.WithLabelValues(reason).Inc()
	}
}

// Latest returns the principal's most recent readings, newest first. The
// limit is clamped to [1, MaxCount] silently.
func (s *Service) Latest(ctx context.Context, principal *auth.Principal, limit int) ([]reading.Reading, error) {
	if principal == nil {
		return nil, errs.Unauthorized("authentication required")
	}
	patient, ok := s.directory.PatientFor(ctx, *principal)
	if !ok {
		return nil, errs.NotFound("no patient bound to principal")
	}
	exists, err := s.registry.Exists(patient)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.NotFound("patient %q not found", patient)
	}

	maxCount := s.retention.Policy().MaxCount
	if limit < 1 {
		limit = 1
	}
	if limit > maxCount {
		limit = maxCount
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.store.Recent(opCtx, patient, limit)
}
