package equipment

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/medequip/internal/dto"
	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/presentation/http/response"
	service "github.com/Additional-Code/medequip/internal/service/equipment"
	"github.com/Additional-Code/medequip/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/medequip/transport/http/equipment")

// Handler exposes equipment endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an equipment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/equipment")
	g.GET("", h.list)
	g.GET("/statuses", h.statuses)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "equipment.list")
	defer span.End()

	records, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.EquipmentResponse, 0, len(records))
	for i := range records {
		out = append(out, toDTO(&records[i]))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) statuses(c echo.Context) error {
	statuses := h.svc.Statuses()
	out := make([]dto.StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, dto.StatusResponse{Value: string(s), Label: s.Label()})
	}
	return response.New(c).WithData(out).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "equipment.getByID", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(rec)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.EquipmentRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	in := toInput(payload)

	ctx, span := httpTracer.Start(c.Request().Context(), "equipment.create",
		trace.WithAttributes(attribute.String("equipment.serial_number", in.SerialNumber)))
	defer span.End()

	rec, err := h.svc.Create(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(rec)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.EquipmentRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	in := toInput(payload)

	ctx, span := httpTracer.Start(c.Request().Context(), "equipment.update", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	rec, err := h.svc.Update(ctx, id, service.UpdateInput{
		Input:     in,
		ID:        payload.ID,
		CreatedAt: payload.CreatedAt,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(rec)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "equipment.delete", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err), errorbank.WithDetail("id", c.Param("id")))
	}
	return id, nil
}

// toInput maps the payload onto registry input. Unparseable dates travel as
// Rejected so the registry reports them with every other field error.
func toInput(p dto.EquipmentRequest) service.Input {
	in := service.Input{
		Name:         p.Name,
		SerialNumber: p.SerialNumber,
		Manufacturer: p.Manufacturer,
		Model:        p.Model,
		Category:     p.Category,
		Location:     p.Location,
		Status:       entity.Status(p.Status),
		Notes:        p.Notes,
	}

	var bad []service.FieldError
	date := func(field, raw string) *time.Time {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		t, err := time.Parse(dto.DateLayout, raw)
		if err != nil {
			bad = append(bad, service.FieldError{Field: field, Message: field + " must be a date in YYYY-MM-DD format"})
			return nil
		}
		return &t
	}
	in.PurchaseDate = date("PurchaseDate", p.PurchaseDate)
	in.LastMaintenanceDate = date("LastMaintenanceDate", p.LastMaintenanceDate)
	in.NextMaintenanceDate = date("NextMaintenanceDate", p.NextMaintenanceDate)

	in.Rejected = bad
	return in
}

func toDTO(rec *entity.Equipment) dto.EquipmentResponse {
	return dto.EquipmentResponse{
		ID:                  rec.ID,
		Name:                rec.Name,
		SerialNumber:        rec.SerialNumber,
		Manufacturer:        rec.Manufacturer,
		Model:               rec.Model,
		Category:            rec.Category,
		Location:            rec.Location,
		Status:              string(rec.Status),
		StatusLabel:         rec.Status.Label(),
		PurchaseDate:        formatDate(rec.PurchaseDate),
		LastMaintenanceDate: formatDate(rec.LastMaintenanceDate),
		NextMaintenanceDate: formatDate(rec.NextMaintenanceDate),
		Notes:               rec.Notes,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dto.DateLayout)
}
