package importledger

import (
	"github.com/smallbiznis/geoatlas/internal/importledger/repository"
	"github.com/smallbiznis/geoatlas/internal/importledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("importledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
