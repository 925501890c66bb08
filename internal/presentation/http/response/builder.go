package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/medequip/pkg/errorbank"
)

// RequestIDKey is the meta key carrying the request identifier.
const RequestIDKey = "request_id"

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	b.attachRequestID()
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

// attachRequestID copies the id set by the RequestID middleware into meta.
func (b *Builder) attachRequestID() {
	if _, ok := b.meta[RequestIDKey]; ok {
		return
	}
	id := b.ctx.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = b.ctx.Request().Header.Get(echo.HeaderXRequestID)
	}
	if id != "" {
		b.WithMeta(RequestIDKey, id)
	}
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	if b.status == http.StatusNoContent {
		return b.ctx.NoContent(b.status)
	}
	return b.ctx.JSON(b.status, Envelope{
		Success: true,
		Data:    b.data,
		Meta:    b.meta,
	})
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	return b.ctx.JSON(status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Kind:    string(appErr.Kind()),
			Message: appErr.Message(),
			Details: appErr.Details(),
		},
		Meta: b.meta,
	})
}
