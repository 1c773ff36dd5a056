package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtlprog/taskindexer/internal/config"
	"github.com/mtlprog/taskindexer/internal/database"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/handler"
	"github.com/mtlprog/taskindexer/internal/ingest"
	"github.com/mtlprog/taskindexer/internal/logger"
	"github.com/mtlprog/taskindexer/internal/metrics"
	"github.com/mtlprog/taskindexer/internal/projection"
	"github.com/mtlprog/taskindexer/internal/query"
	"github.com/mtlprog/taskindexer/internal/repository"
	"github.com/mtlprog/taskindexer/internal/router"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:  "taskindexer",
		Usage: "Projects task escrow and dispute contract events into a queryable store",
		Flags: globalFlags(),
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the query API, optionally ingesting an event file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "events",
						Usage:   "JSONL event file to ingest while serving",
						EnvVars: []string{"EVENTS_FILE"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "ingest",
				Usage: "Ingest a JSONL event feed (file or stdin) and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Value:   "-",
						Usage:   "JSONL event file, - for stdin",
					},
				},
				Action: runIngest,
			},
			{
				Name:  "replay",
				Usage: "Rebuild the projection from the recorded event log",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Truncate projected tables before replaying",
					},
					&cli.StringFlag{
						Name:  "stream",
						Usage: "Replay only this stream",
					},
				},
				Action: runReplay,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and report the schema version",
				Action: runMigrate,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   string(config.DefaultStore),
			Usage:   "Entity store backend (postgres, memory)",
			EnvVars: []string{"STORE"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Aliases: []string{"d"},
			Value:   config.DefaultDatabaseURL,
			Usage:   "PostgreSQL database URL",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-conns",
			Value:   config.DefaultMaxConns,
			Usage:   "Maximum PostgreSQL connections",
			EnvVars: []string{"DATABASE_MAX_CONNS"},
		},
	}
	for _, f := range config.ContractFlags {
		flags = append(flags, &cli.StringFlag{
			Name:    f.Name,
			Usage:   fmt.Sprintf("Address of the %s contract", f.Source),
			EnvVars: []string{f.EnvVar},
		})
	}
	return flags
}

// indexer is the wired projection: store, router, metrics and ingest runner.
type indexer struct {
	store    store.Store
	db       *database.DB
	metrics  *metrics.Metrics
	registry *ingest.ContractRegistry
	runner   *ingest.Runner
}

func (a *indexer) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func setup(c *cli.Context) (*indexer, error) {
	ctx := c.Context

	backend, err := config.ParseStore(c.String("store"))
	if err != nil {
		return nil, err
	}

	contracts := make(map[domain.Source]string, len(config.ContractFlags))
	for _, f := range config.ContractFlags {
		contracts[f.Source] = c.String(f.Name)
	}
	registry, err := ingest.NewContractRegistry(contracts)
	if err != nil {
		return nil, fmt.Errorf("failed to build contract registry: %w", err)
	}

	a := &indexer{metrics: metrics.New(), registry: registry}

	switch backend {
	case config.StoreMemory:
		a.store = store.NewMemoryStore()
	case config.StorePostgres:
		databaseURL := c.String("database-url")
		if databaseURL == "" {
			return nil, errors.New("database-url is required for the postgres store")
		}
		db, err := database.New(ctx, databaseURL, int32(c.Int("max-conns")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx, db.Pool()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.db = db
		a.store = repository.NewPostgresStore(db.Pool())
	}

	r := router.New(a.metrics)
	projection.NewProjector(a.store).Register(r)
	a.runner = ingest.NewRunner(a.store, r, a.metrics)

	slog.Info("projection ready", "store", backend, "routes", r.Routes())
	return a, nil
}

func openEvents(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	return f, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	h := handler.New(query.NewService(a.store), a.metrics)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if path := c.String("events"); path != "" {
		g.Go(func() error {
			events, err := openEvents(path)
			if err != nil {
				return err
			}
			defer events.Close()
			if err := a.runner.RunSource(gctx, ingest.NewJSONLSource(events, a.registry)); err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			slog.Info("event file ingested", "path", path)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}

func runIngest(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := openEvents(c.String("file"))
	if err != nil {
		return err
	}
	defer events.Close()

	if err := a.runner.RunSource(ctx, ingest.NewJSONLSource(events, a.registry)); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	for _, src := range domain.Sources {
		slog.Info("stream ingested",
			"stream", src,
			"applied", eventsByOutcome(a.metrics, src, metrics.OutcomeApplied),
			"skipped", eventsByOutcome(a.metrics, src, metrics.OutcomeSkipped),
			"dropped", eventsByOutcome(a.metrics, src, metrics.OutcomeDropped),
		)
	}
	return nil
}

// eventsByOutcome sums one outcome over every event name of a stream.
func eventsByOutcome(m *metrics.Metrics, src domain.Source, outcome metrics.Outcome) int {
	total := 0.0
	for _, name := range domain.EventNames {
		total += m.EventCount(string(src), string(name), outcome)
	}
	return int(total)
}

func runReplay(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return errors.New("replay requires the postgres store")
	}

	if c.Bool("reset") {
		if err := database.ResetProjection(ctx, a.db.Pool()); err != nil {
			return fmt.Errorf("failed to reset projection: %w", err)
		}
	}

	var n int
	if stream := c.String("stream"); stream != "" {
		src := domain.Source(stream)
		if !src.IsValid() {
			return fmt.Errorf("unknown stream %q", stream)
		}
		n, err = a.runner.Replay(ctx, src, domain.Position{})
	} else {
		n, err = a.runner.ReplayAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	slog.Info("replay completed", "events", n)
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return errors.New("database-url is required")
	}

	db, err := database.New(ctx, databaseURL, int32(c.Int("max-conns")))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := database.MigrationVersion(ctx, db.Pool())
	if err != nil {
		return err
	}
	slog.Info("schema up to date", "version", version)
	return nil
}
