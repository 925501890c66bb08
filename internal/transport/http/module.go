package http

import (
	"go.uber.org/fx"

	equipmenttransport "github.com/Additional-Code/medequip/internal/transport/http/equipment"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	equipmenttransport.Module,
)
