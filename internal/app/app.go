package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/medequip/internal/cache"
	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/database"
	"github.com/Additional-Code/medequip/internal/logger"
	"github.com/Additional-Code/medequip/internal/messaging"
	"github.com/Additional-Code/medequip/internal/migration"
	"github.com/Additional-Code/medequip/internal/observability"
	repositoryequipment "github.com/Additional-Code/medequip/internal/repository/equipment"
	grpcserver "github.com/Additional-Code/medequip/internal/server/grpc"
	httpserver "github.com/Additional-Code/medequip/internal/server/http"
	serviceequipment "github.com/Additional-Code/medequip/internal/service/equipment"
	transporthttp "github.com/Additional-Code/medequip/internal/transport/http"
	"github.com/Additional-Code/medequip/internal/worker"
	workerequipment "github.com/Additional-Code/medequip/internal/worker/equipment"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryequipment.Module,
	serviceequipment.Module,
)

// HTTP wires the HTTP API and the gRPC health endpoint on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerequipment.Module,
)

// AutoMigrate applies pending migrations before any server starts accepting traffic.
var AutoMigrate = fx.Options(
	migration.Module,
	fx.Invoke(func(lc fx.Lifecycle, m *migration.Migrator) {
		lc.Append(fx.Hook{OnStart: m.Up})
	}),
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
