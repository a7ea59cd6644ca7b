package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/geoatlas/internal/catalog"
	catalogdomain "github.com/smallbiznis/geoatlas/internal/catalog/domain"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/importledger"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	"github.com/smallbiznis/geoatlas/internal/observability"
	obsmiddleware "github.com/smallbiznis/geoatlas/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/geoatlas/internal/observability/metrics"
	obstracing "github.com/smallbiznis/geoatlas/internal/observability/tracing"
	"github.com/smallbiznis/geoatlas/internal/projection"
	projectiondomain "github.com/smallbiznis/geoatlas/internal/projection/domain"
	"github.com/smallbiznis/geoatlas/internal/proximity"
	proximitydomain "github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"github.com/smallbiznis/geoatlas/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the read API. It expects config, observability, the store
// and the redis client to be provided by the app.
var Module = fx.Module("http.server",
	importledger.Module,
	proximity.Module,
	projection.Module,
	catalog.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the engine for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.String("addr", srv.Addr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	proximitySvc  proximitydomain.Service
	projectionSvc projectiondomain.Service
	catalogSvc    catalogdomain.Service
	ledgerSvc     ledgerdomain.Service
	limiter       *ratelimit.QueryLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	ProximitySvc  proximitydomain.Service
	ProjectionSvc projectiondomain.Service
	CatalogSvc    catalogdomain.Service
	LedgerSvc     ledgerdomain.Service
	Limiter       *ratelimit.QueryLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		proximitySvc:  p.ProximitySvc,
		projectionSvc: p.ProjectionSvc,
		catalogSvc:    p.CatalogSvc,
		ledgerSvc:     p.LedgerSvc,
		limiter:       p.Limiter,
	}
}

func (s *Server) RegisterAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.QueryRateLimit())

	v1.GET("/nearby", s.Nearby)
	v1.GET("/cities/major", s.MajorCities)
	v1.GET("/cities/nearby", s.NearbyMajorCities)
	v1.GET("/sites/tourist", s.MajorTouristSites)
	v1.GET("/sites/cultural", s.CulturalSites)
	v1.GET("/postal/:country/:code", s.PostalLookup)
	v1.GET("/imports", s.ListImports)
	v1.GET("/imports/check", s.CheckImported)
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}
