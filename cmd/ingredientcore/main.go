// Command ingredientcore manages the ingredient catalog: it renders and applies
// the backend schema, searches units, foods and recipe ingredient lines, and
// exports or imports a group's catalog through blob storage.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"ingredientcore/internal/blob"
	"ingredientcore/internal/config"
	"ingredientcore/internal/core"
	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: ingredientcore <command> [flags]

Commands:
  schema   Print the DDL bundle for a backend
  migrate  Open the configured store, applying its schema
  search   Search units, foods or recipe ingredients
  export   Export a group's catalog to blob storage
  import   Import a catalog export into a group
`)
}

var commands = map[string]func(ctx context.Context, args []string, stdout io.Writer) error{
	"schema":  cmdSchema,
	"migrate": cmdMigrate,
	"search":  cmdSearch,
	"export":  cmdExport,
	"import":  cmdImport,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(stderr)
		return 2
	}
	if err := cmd(ctx, args[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "ingredientcore %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// app holds what every store-backed command needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	svc      *core.Service
	store    domain.PersistentStore
	metrics  *core.PrometheusMetricsRecorder
	registry *prometheus.Registry
	textfile string
}

type globalFlags struct {
	configPath string
	textfile   string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&g.textfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
}

func openApp(g globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	logger.Debug("store opened", "driver", cfg.Storage.Driver, "family", store.Catalog().Family().String())
	svc := core.NewService(store, core.WithLogger(logger), core.WithMetricsRecorder(metrics))
	return &app{
		cfg:      cfg,
		logger:   logger,
		svc:      svc,
		store:    store,
		metrics:  metrics,
		registry: registry,
		textfile: g.textfile,
	}, nil
}

func (a *app) close() error {
	var errs []error
	if a.textfile != "" {
		if err := prometheus.WriteToTextfile(a.textfile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func withApp(g globalFlags, fn func(*app) error) (err error) {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdSchema(_ context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	driver := fs.String("driver", "sqlite", "backend to render for: sqlite|postgres")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var ddl string
	switch *driver {
	case "sqlite":
		ddl = sqlbundle.SQLite()
	case "postgres":
		ddl = sqlbundle.Postgres()
	default:
		return fmt.Errorf("unknown driver %q", *driver)
	}
	_, err := io.WriteString(stdout, ddl)
	return err
}

func cmdMigrate(_ context.Context, args []string, stdout io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withApp(g, func(a *app) error {
		plans, err := a.svc.SchemaPlans()
		if err != nil {
			return err
		}
		a.metrics.ObservePlans(plans)
		type planSummary struct {
			Table   string `json:"table"`
			Family  string `json:"family"`
			BTree   int    `json:"btree_indexes"`
			Trigram int    `json:"trigram_indexes"`
		}
		out := make([]planSummary, 0, len(plans))
		for _, p := range plans {
			s := planSummary{
				Table:   p.Table.Name,
				Family:  p.Family.String(),
				BTree:   p.CountMethod(schema.MethodBTree),
				Trigram: p.CountMethod(schema.MethodTrigram),
			}
			a.logger.Info("schema applied", "table", s.Table, "family", s.Family, "btree", s.BTree, "trigram", s.Trigram)
			out = append(out, s)
		}
		return writeJSON(stdout, out)
	})
}

func cmdSearch(ctx context.Context, args []string, stdout io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	g.register(fs)
	kind := fs.String("kind", "food", "what to search: unit|food|ingredient")
	group := fs.String("group", "", "group id (units and foods)")
	recipe := fs.String("recipe", "", "recipe id (ingredients, optional)")
	text := fs.String("q", "", "search text")
	fuzzy := fs.Bool("fuzzy", false, "also match trigram-similar values")
	limit := fs.Int("limit", 0, "maximum results, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q := domain.SearchQuery{GroupID: *group, RecipeID: *recipe, Text: *text, Fuzzy: *fuzzy, Limit: *limit}
	return withApp(g, func(a *app) error {
		var (
			res any
			err error
		)
		switch *kind {
		case "unit":
			res, err = a.svc.SearchUnits(ctx, q)
		case "food":
			res, err = a.svc.SearchFoods(ctx, q)
		case "ingredient":
			res, err = a.svc.SearchRecipeIngredients(ctx, q)
		default:
			return fmt.Errorf("unknown kind %q", *kind)
		}
		if err != nil {
			return err
		}
		return writeJSON(stdout, res)
	})
}

func cmdExport(ctx context.Context, args []string, stdout io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	g.register(fs)
	group := fs.String("group", "", "group id to export")
	key := fs.String("key", "", "blob key (derived from group and time when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withApp(g, func(a *app) error {
		store, err := blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return err
		}
		info, err := a.svc.ExportCatalog(ctx, store, *group, *key)
		if err != nil {
			return err
		}
		a.logger.Info("catalog exported", "group", *group, "key", info.Key, "driver", string(store.Driver()), "bytes", info.Size)
		return writeJSON(stdout, info)
	})
}

func cmdImport(ctx context.Context, args []string, stdout io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	g.register(fs)
	group := fs.String("group", "", "group id to import into")
	key := fs.String("key", "", "blob key of the export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}
	return withApp(g, func(a *app) error {
		store, err := blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return err
		}
		report, _, err := a.svc.ImportCatalog(ctx, store, *key, *group)
		if err != nil {
			return err
		}
		a.logger.Info("catalog imported", "group", *group, "key", *key, "units", report.Units, "foods", report.Foods, "skipped", report.Skipped)
		return writeJSON(stdout, report)
	})
}
