package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/lock"
	"github.com/smallbiznis/geoatlas/internal/observability"
	"github.com/smallbiznis/geoatlas/internal/schema"
	"github.com/smallbiznis/geoatlas/internal/server"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		lock.Module,
		schema.Module,

		fx.Invoke(EnsureSchema),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}

// EnsureSchema creates missing tables before the listener starts so that
// queries against a fresh store return empty results instead of errors.
func EnsureSchema(lc fx.Lifecycle, p *schema.Provisioner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Ensure(ctx)
		},
	})
}
