package equipment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/messaging"
	equipmentsvc "github.com/Additional-Code/medequip/internal/service/equipment"
	"github.com/Additional-Code/medequip/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/medequip/worker/equipment")

// Module registers equipment event handlers with the worker engine.
var Module = fx.Module("worker_equipment",
	fx.Provide(
		fx.Annotate(
			NewMaintenanceHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Urgency grades how close a record's next maintenance is.
type Urgency string

const (
	UrgencyNone    Urgency = ""
	UrgencyDueSoon Urgency = "due_soon"
	UrgencyOverdue Urgency = "overdue"
)

// Assess grades the event's next maintenance date against now and the warning window.
// Decommissioned equipment and deletions are never flagged.
func Assess(ev equipmentsvc.Event, now time.Time, window time.Duration) Urgency {
	if ev.Type == equipmentsvc.EventDeleted || ev.NextMaintenanceDate == nil {
		return UrgencyNone
	}
	if ev.Status == entity.StatusDecommissioned {
		return UrgencyNone
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	due := ev.NextMaintenanceDate.UTC()

	switch {
	case due.Before(today):
		return UrgencyOverdue
	case !due.After(today.Add(window)):
		return UrgencyDueSoon
	default:
		return UrgencyNone
	}
}

// NewMaintenanceHandler logs lifecycle events and flags equipment whose maintenance is due.
func NewMaintenanceHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: maintenanceHandler(logger, cfg.Maintenance.WarningWindow, time.Now),
	}
}

func maintenanceHandler(logger *zap.Logger, window time.Duration, now func() time.Time) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.equipment.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var ev equipmentsvc.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Error("failed to decode equipment event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return fmt.Errorf("decode equipment event: %w", err)
		}
		span.SetAttributes(
			attribute.String("equipment.event", ev.Type),
			attribute.Int64("equipment.id", ev.ID),
		)

		fields := []zap.Field{
			zap.String("type", ev.Type),
			zap.Int64("id", ev.ID),
			zap.String("serial_number", ev.SerialNumber),
		}
		logger.Info("equipment event processed", fields...)

		switch Assess(ev, now(), window) {
		case UrgencyOverdue:
			logger.Warn("equipment maintenance overdue",
				append(fields, zap.Time("next_maintenance_date", *ev.NextMaintenanceDate))...)
		case UrgencyDueSoon:
			logger.Warn("equipment maintenance due soon",
				append(fields, zap.Time("next_maintenance_date", *ev.NextMaintenanceDate), zap.Duration("window", window))...)
		}
		return nil
	}
}
