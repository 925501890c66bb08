package equipment

import "go.uber.org/fx"

// Module provides the equipment registry to Fx.
var Module = fx.Provide(NewService)
