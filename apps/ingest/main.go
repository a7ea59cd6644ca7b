package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/importledger"
	"github.com/smallbiznis/geoatlas/internal/ingest"
	ingestdomain "github.com/smallbiznis/geoatlas/internal/ingest/domain"
	"github.com/smallbiznis/geoatlas/internal/lock"
	"github.com/smallbiznis/geoatlas/internal/observability"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/schema"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Options struct {
	Dir         string
	Categories  []placedomain.Category
	Reset       []placedomain.Category
	ResetLedger bool
}

func main() {
	var (
		dir         = flag.String("dir", "", "directory holding the source files (defaults to INGEST_DATA_DIR)")
		categories  = flag.String("category", "", "comma-separated categories to ingest (default all)")
		reset       = flag.String("reset", "", "comma-separated categories whose tables are dropped and recreated first")
		resetLedger = flag.Bool("reset-ledger", false, "drop and recreate the import ledger first, discarding its history")
	)
	flag.Parse()

	opts := Options{Dir: *dir, ResetLedger: *resetLedger}
	var err error
	if opts.Categories, err = parseCategories(*categories); err != nil {
		fmt.Fprintln(os.Stderr, "invalid -category:", err)
		os.Exit(2)
	}
	if opts.Reset, err = parseCategories(*reset); err != nil {
		fmt.Fprintln(os.Stderr, "invalid -reset:", err)
		os.Exit(2)
	}

	app := fx.New(
		fx.Supply(opts),
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		lock.Module,
		schema.Module,
		importledger.Module,
		ingest.Module,

		fx.Invoke(RunIngest),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// RunIngest runs one ingestion pass in the background and shuts the app down
// when it ends. Stopping the app cancels the run; chunks already holding
// their table lock still commit.
func RunIngest(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	opts Options,
	cfg config.Config,
	provisioner *schema.Provisioner,
	svc ingestdomain.Service,
	log *zap.Logger,
) {
	log = log.Named("ingest.runner")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				code := 0
				if err := run(ctx, opts, cfg, provisioner, svc, log); err != nil {
					log.Error("ingestion run failed", zap.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func run(ctx context.Context, opts Options, cfg config.Config, provisioner *schema.Provisioner, svc ingestdomain.Service, log *zap.Logger) error {
	if err := provisioner.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if opts.ResetLedger {
		if err := provisioner.Reset(ctx, schema.TableImportLedger, schema.AllowLedger()); err != nil {
			return fmt.Errorf("reset %s: %w", schema.TableImportLedger, err)
		}
		log.Warn("import ledger reset")
	}
	for _, category := range opts.Reset {
		table, err := schema.TableFor(category)
		if err != nil {
			return err
		}
		if err := provisioner.Reset(ctx, table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
		log.Info("table reset", zap.String("table", string(table)))
	}

	dir := opts.Dir
	if dir == "" {
		dir = cfg.Ingest.DataDir
	}
	report, err := svc.Run(ctx, ingestdomain.RunRequest{Dir: dir, Categories: opts.Categories})
	if errors.Is(err, context.Canceled) {
		log.Warn("ingestion stopped", zap.String("run_id", report.RunID), zap.Int("files", len(report.Files)))
		return nil
	}
	return err
}

func parseCategories(raw string) ([]placedomain.Category, error) {
	var out []placedomain.Category
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		category, err := placedomain.ParseCategory(part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		out = append(out, category)
	}
	return out, nil
}
