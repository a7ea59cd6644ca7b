package projection

import (
	"github.com/smallbiznis/geoatlas/internal/projection/repository"
	"github.com/smallbiznis/geoatlas/internal/projection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("projection.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
