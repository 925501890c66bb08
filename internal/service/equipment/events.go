package equipment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/messaging"
)

// Event types published on the equipment topic.
const (
	EventCreated = "equipment.created"
	EventUpdated = "equipment.updated"
	EventDeleted = "equipment.deleted"
)

// EventTypeHeader carries the event type alongside the payload.
const EventTypeHeader = "event-type"

// Event is emitted after an equipment record is committed.
type Event struct {
	Type                string        `json:"type"`
	ID                  int64         `json:"id"`
	SerialNumber        string        `json:"serial_number,omitempty"`
	Name                string        `json:"name,omitempty"`
	Status              entity.Status `json:"status,omitempty"`
	NextMaintenanceDate *time.Time    `json:"next_maintenance_date,omitempty"`
	OccurredAt          time.Time     `json:"occurred_at"`
}

// EventKey partitions events so every event for one record stays in order.
func EventKey(id int64) []byte {
	return []byte(fmt.Sprintf("equipment-%d", id))
}

func newEvent(kind string, rec *entity.Equipment, at time.Time) Event {
	return Event{
		Type:                kind,
		ID:                  rec.ID,
		SerialNumber:        rec.SerialNumber,
		Name:                rec.Name,
		Status:              rec.Status,
		NextMaintenanceDate: rec.NextMaintenanceDate,
		OccurredAt:          at,
	}
}

// publish never fails the caller: the record is already committed.
func (s *Service) publish(ctx context.Context, event Event) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal equipment event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	msg := messaging.Message{
		Topic:   s.messaging.topic,
		Key:     EventKey(event.ID),
		Value:   payload,
		Headers: map[string]string{EventTypeHeader: event.Type},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publish equipment event",
			zap.String("type", event.Type),
			zap.Int64("id", event.ID),
			zap.Error(err),
		)
	}
}
