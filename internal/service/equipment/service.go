package equipment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/cache"
	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/messaging"
	"github.com/Additional-Code/medequip/internal/observability"
	repo "github.com/Additional-Code/medequip/internal/repository/equipment"
	"github.com/Additional-Code/medequip/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/medequip/service/equipment"

var serviceTracer = otel.Tracer(instrumentationName)

// Store is the persistence contract the registry relies on.
type Store interface {
	Insert(ctx context.Context, rec *entity.Equipment) error
	UpdateByID(ctx context.Context, id int64, rec *entity.Equipment) error
	DeleteByID(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*entity.Equipment, error)
	ExistsWhere(ctx context.Context, pred repo.Predicate) (bool, error)
	ListOrderedByCreatedAtDesc(ctx context.Context) ([]entity.Equipment, error)
}

// Service is the equipment registry: validated CRUD with unique serial numbers.
type Service struct {
	store     Store
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	validate  *validator.Validate
	metrics   registryMetrics
	now       func() time.Time
}

type messagingConfig struct {
	enabled bool
	topic   string
}

type registryMetrics struct {
	operations metric.Int64Counter
	duplicates metric.Int64Counter
	duration   metric.Float64Histogram
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository    *repo.Repository
	Cache         cache.Store
	Config        config.Config
	Logger        *zap.Logger
	Publisher     messaging.Client
	Observability *observability.Manager `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	svc := newService(p.Repository, p.Cache, p.Config, p.Logger, p.Publisher)
	if err := svc.instrument(p.Observability.Meter(instrumentationName)); err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(store Store, c cache.Store, cfg config.Config, logger *zap.Logger, publisher messaging.Client) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.Noop()
	}
	return &Service{
		store:     store,
		cache:     c,
		cacheTTL:  cfg.Cache.DefaultTTL,
		logger:    logger,
		publisher: publisher,
		messaging: messagingConfig{
			enabled: cfg.Messaging.Enabled,
			topic:   cfg.Messaging.Kafka.Topic,
		},
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) instrument(meter metric.Meter) error {
	ops, err := meter.Int64Counter(observability.RegistryOperations,
		metric.WithDescription("Registry operations by outcome"))
	if err != nil {
		return fmt.Errorf("create operations counter: %w", err)
	}
	dups, err := meter.Int64Counter(observability.RegistryDuplicates,
		metric.WithDescription("Writes rejected for a duplicate serial number, by detection source"))
	if err != nil {
		return fmt.Errorf("create duplicates counter: %w", err)
	}
	duration, err := meter.Float64Histogram(observability.RegistryDuration,
		metric.WithDescription("Registry operation latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return fmt.Errorf("create duration histogram: %w", err)
	}
	s.metrics = registryMetrics{operations: ops, duplicates: dups, duration: duration}
	return nil
}

// Statuses lists the closed set of equipment statuses.
func (s *Service) Statuses() []entity.Status {
	return entity.Statuses()
}

// List returns every record, newest first.
func (s *Service) List(ctx context.Context) ([]entity.Equipment, error) {
	ctx, span := serviceTracer.Start(ctx, "EquipmentService.List")
	defer span.End()
	defer s.timed(ctx, "list")()

	records, err := s.store.ListOrderedByCreatedAtDesc(ctx)
	if err != nil {
		return nil, s.internal(ctx, span, "list", "failed to list equipment", err)
	}
	s.count(ctx, "list", "ok")
	return records, nil
}

// Get retrieves a record by id, consulting the cache first.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Equipment, error) {
	ctx, span := serviceTracer.Start(ctx, "EquipmentService.Get", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()
	defer s.timed(ctx, "get")()

	if rec, err := s.getFromCache(ctx, id); err == nil {
		s.count(ctx, "get", "ok")
		return rec, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("equipment cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.count(ctx, "get", "not_found")
			return nil, notFound(id)
		}
		return nil, s.internal(ctx, span, "get", "failed to load equipment", err)
	}

	s.storeInCache(ctx, rec)
	s.count(ctx, "get", "ok")
	return rec, nil
}

// Create validates and persists a new record. An empty status defaults to Active.
func (s *Service) Create(ctx context.Context, in Input) (*entity.Equipment, error) {
	in = in.normalized()
	if in.Status == "" {
		in.Status = entity.StatusActive
	}

	ctx, span := serviceTracer.Start(ctx, "EquipmentService.Create", trace.WithAttributes(attribute.String("equipment.serial_number", in.SerialNumber)))
	defer span.End()
	defer s.timed(ctx, "create")()

	if fields := validateInput(s.validate, in); len(fields) > 0 {
		s.count(ctx, "create", "invalid")
		return nil, invalid(fields)
	}

	taken, err := s.store.ExistsWhere(ctx, repo.SerialNumberEquals(in.SerialNumber))
	if err != nil {
		return nil, s.internal(ctx, span, "create", "failed to check serial number", err)
	}
	if taken {
		return nil, s.duplicate(ctx, "create", "precheck", in.SerialNumber)
	}

	rec := &entity.Equipment{CreatedAt: s.timestamp()}
	in.applyTo(rec)

	if err := s.store.Insert(ctx, rec); err != nil {
		var violation *repo.ConstraintViolationError
		if errors.As(err, &violation) {
			return nil, s.duplicate(ctx, "create", "constraint", in.SerialNumber)
		}
		return nil, s.internal(ctx, span, "create", "failed to create equipment", err)
	}

	span.SetAttributes(attribute.Int64("equipment.id", rec.ID))
	s.publish(ctx, newEvent(EventCreated, rec, rec.CreatedAt))
	s.count(ctx, "create", "ok")
	return rec, nil
}

// Update replaces the editable fields of record id. CreatedAt is always kept
// from storage; any value carried by the input is ignored.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*entity.Equipment, error) {
	ctx, span := serviceTracer.Start(ctx, "EquipmentService.Update", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()
	defer s.timed(ctx, "update")()

	if in.ID != 0 && in.ID != id {
		s.count(ctx, "update", "not_found")
		return nil, notFound(id)
	}

	input := in.Input.normalized()
	if fields := validateInput(s.validate, input); len(fields) > 0 {
		s.count(ctx, "update", "invalid")
		return nil, invalid(fields)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.count(ctx, "update", "not_found")
			return nil, notFound(id)
		}
		return nil, s.internal(ctx, span, "update", "failed to load equipment", err)
	}

	taken, err := s.store.ExistsWhere(ctx, repo.All(
		repo.SerialNumberEquals(input.SerialNumber),
		repo.ExcludingID(id),
	))
	if err != nil {
		return nil, s.internal(ctx, span, "update", "failed to check serial number", err)
	}
	if taken {
		return nil, s.duplicate(ctx, "update", "precheck", input.SerialNumber)
	}

	updated := *current
	input.applyTo(&updated)
	updatedAt := s.timestamp()
	updated.UpdatedAt = &updatedAt

	if err := s.store.UpdateByID(ctx, id, &updated); err != nil {
		var violation *repo.ConstraintViolationError
		switch {
		case errors.Is(err, repo.ErrNotFound):
			s.invalidate(ctx, id)
			s.count(ctx, "update", "not_found")
			return nil, notFound(id)
		case errors.As(err, &violation):
			return nil, s.duplicate(ctx, "update", "constraint", input.SerialNumber)
		default:
			return nil, s.internal(ctx, span, "update", "failed to update equipment", err)
		}
	}

	// Written entries could outlive a concurrent Delete; the next Get reloads.
	s.invalidate(ctx, id)
	s.publish(ctx, newEvent(EventUpdated, &updated, updatedAt))
	s.count(ctx, "update", "ok")
	return &updated, nil
}

// Delete removes record id. Deleting an absent id succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "EquipmentService.Delete", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()
	defer s.timed(ctx, "delete")()

	removed, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return s.internal(ctx, span, "delete", "failed to delete equipment", err)
	}
	s.invalidate(ctx, id)

	if !removed {
		s.count(ctx, "delete", "absent")
		return nil
	}
	s.publish(ctx, Event{Type: EventDeleted, ID: id, OccurredAt: s.timestamp()})
	s.count(ctx, "delete", "ok")
	return nil
}

// timestamp is truncated to the precision every supported database keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) duplicate(ctx context.Context, op, source, serial string) error {
	if s.metrics.duplicates != nil {
		s.metrics.duplicates.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("source", source),
		))
	}
	s.count(ctx, op, "duplicate")
	return duplicateSerial(serial)
}

func (s *Service) internal(ctx context.Context, span trace.Span, op, message string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	s.logger.Error(message, zap.String("operation", op), zap.Error(err))
	s.count(ctx, op, "error")
	return errorbank.Internal(message, errorbank.WithCause(err))
}

// timed records the latency of op when the returned func is called.
func (s *Service) timed(ctx context.Context, op string) func() {
	if s.metrics.duration == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		s.metrics.duration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (s *Service) count(ctx context.Context, op, outcome string) {
	if s.metrics.operations == nil {
		return
	}
	s.metrics.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("equipment:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Equipment, error) {
	raw, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var rec entity.Equipment
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) storeInCache(ctx context.Context, rec *entity.Equipment) {
	raw, err := json.Marshal(rec)
	if err == nil {
		err = s.cache.Set(ctx, s.cacheKey(rec.ID), raw, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn("equipment cache write failed", zap.Int64("id", rec.ID), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("equipment cache delete failed", zap.Int64("id", id), zap.Error(err))
	}
}
