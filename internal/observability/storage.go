package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"binforge/internal/models"
	"binforge/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	quota    metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("binforge/storage")
	meter := otel.Meter("binforge/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	quotaCounter, err := meter.Int64Counter(
		"quota.daily.denials",
		metric.WithDescription("Number of daily quota consumptions rejected at the limit"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
		quota:    quotaCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, span := s.startSpan(ctx, "CreateAPIKey", attribute.String("key_id", key.ID))
	start := time.Now()
	err := s.inner.CreateAPIKey(ctx, key)
	s.record(ctx, span, "CreateAPIKey", start, err)
	return err
}

func (s *InstrumentedStorage) GetAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "GetAPIKey", attribute.String("key_id", id))
	start := time.Now()
	result, err := s.inner.GetAPIKey(ctx, id)
	s.record(ctx, span, "GetAPIKey", start, err)
	return result, err
}

// GetAPIKeyByHash spans carry no key attribute: the hash is a credential
// lookup and must not leak into traces.
func (s *InstrumentedStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "GetAPIKeyByHash")
	start := time.Now()
	result, err := s.inner.GetAPIKeyByHash(ctx, hash)
	s.record(ctx, span, "GetAPIKeyByHash", start, err)
	return result, err
}

func (s *InstrumentedStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "ListAPIKeys")
	start := time.Now()
	result, err := s.inner.ListAPIKeys(ctx)
	s.record(ctx, span, "ListAPIKeys", start, err)
	return result, err
}

func (s *InstrumentedStorage) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, span := s.startSpan(ctx, "UpdateAPIKey", attribute.String("key_id", key.ID))
	start := time.Now()
	err := s.inner.UpdateAPIKey(ctx, key)
	s.record(ctx, span, "UpdateAPIKey", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteAPIKey(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteAPIKey", attribute.String("key_id", id))
	start := time.Now()
	err := s.inner.DeleteAPIKey(ctx, id)
	s.record(ctx, span, "DeleteAPIKey", start, err)
	return err
}

func (s *InstrumentedStorage) ConsumeDailyQuota(ctx context.Context, keyID string, now time.Time) (*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "ConsumeDailyQuota", attribute.String("key_id", keyID))
	start := time.Now()
	result, err := s.inner.ConsumeDailyQuota(ctx, keyID, now)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		s.quota.Add(ctx, 1, metric.WithAttributes(attribute.String("key_id", keyID)))
	}
	s.record(ctx, span, "ConsumeDailyQuota", start, err)
	return result, err
}

func (s *InstrumentedStorage) RecordUsage(ctx context.Context, record *models.UsageRecord) error {
	ctx, span := s.startSpan(ctx, "RecordUsage", attribute.String("key_id", record.KeyID))
	start := time.Now()
	err := s.inner.RecordUsage(ctx, record)
	s.record(ctx, span, "RecordUsage", start, err)
	return err
}

func (s *InstrumentedStorage) UsageForKey(ctx context.Context, keyID string, limit int) ([]*models.UsageRecord, error) {
	ctx, span := s.startSpan(ctx, "UsageForKey",
		attribute.String("key_id", keyID),
		attribute.Int("limit", limit),
	)
	start := time.Now()
	result, err := s.inner.UsageForKey(ctx, keyID, limit)
	s.record(ctx, span, "UsageForKey", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	ctx, span := s.startSpan(ctx, "GetBin", attribute.String("bin", bin))
	start := time.Now()
	result, err := s.inner.GetBin(ctx, bin)
	s.record(ctx, span, "GetBin", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveBin(ctx context.Context, info *models.BinInfo) error {
	ctx, span := s.startSpan(ctx, "SaveBin", attribute.String("bin", info.Bin))
	start := time.Now()
	err := s.inner.SaveBin(ctx, info)
	s.record(ctx, span, "SaveBin", start, err)
	return err
}

func (s *InstrumentedStorage) GetBlockedBin(ctx context.Context, bin string) (*models.BlockedBin, error) {
	ctx, span := s.startSpan(ctx, "GetBlockedBin", attribute.String("bin", bin))
	start := time.Now()
	result, err := s.inner.GetBlockedBin(ctx, bin)
	s.record(ctx, span, "GetBlockedBin", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveBlockedBin(ctx context.Context, blocked *models.BlockedBin) error {
	ctx, span := s.startSpan(ctx, "SaveBlockedBin", attribute.String("bin", blocked.Bin))
	start := time.Now()
	err := s.inner.SaveBlockedBin(ctx, blocked)
	s.record(ctx, span, "SaveBlockedBin", start, err)
	return err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
