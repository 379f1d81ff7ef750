package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"occal/internal/config"
	"occal/internal/editor"
	"occal/internal/locale"
	appLog "occal/internal/log"
	"occal/internal/model"
	"occal/internal/plan"
	"occal/internal/preview"
	"occal/internal/store"
	"occal/internal/web"
)

// documentStore is the union of the persistence backends main can wire.
type documentStore interface {
	editor.Persister
	Load(ctx context.Context, ids model.IDGenerator) ([]model.Occurrence, string, *plan.Serialized, error)
}

type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	appLog.Info("occal starting", "version", "0.1.0-dev")

	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	// The environment wins over the config file for the DSN, so deployments
	// can keep credentials out of the YAML.
	if dsn := os.Getenv("DATABASE_URI"); dsn != "" {
		conf.Storage.DSN = dsn
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"locale", conf.Locale,
		"storage_driver", conf.Storage.Driver,
		"snapshot_cron", conf.SnapshotCron,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, fileStore, err := buildStore(ctx, conf)
	if err != nil {
		appLog.Error("failed to initialize storage", err, "driver", conf.Storage.Driver)
		os.Exit(1)
	}

	ctrl, err := buildController(ctx, conf, st)
	if err != nil {
		appLog.Error("failed to load the occurrence document", err)
		os.Exit(1)
	}

	// Snapshot cron only applies to the file store; postgres deployments
	// back up at the database.
	var scheduler *cron.Cron
	if conf.SnapshotCron != "" && fileStore != nil {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(conf.SnapshotCron, func() {
			name, err := fileStore.Snapshot(conf.SnapshotDir)
			if err != nil {
				appLog.Error("snapshot failed", err, "dir", conf.SnapshotDir)
				return
			}
			if name != "" {
				appLog.Info("snapshot written", "file", name)
			}
		})
		if err != nil {
			appLog.Error("invalid snapshot cron expression", err, "cron", conf.SnapshotCron)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, ctrl).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.Error("graceful shutdown failed", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}

	appLog.Info("occal exiting")
}

// buildStore selects the persistence backend. The *store.FileStore return is
// non-nil only for the file driver, where it additionally serves snapshots.
func buildStore(ctx context.Context, conf *config.Config) (documentStore, *store.FileStore, error) {
	switch conf.Storage.Driver {
	case "postgres":
		if conf.Storage.DSN == "" {
			return nil, nil, errors.New("postgres driver requires storage.dsn or DATABASE_URI")
		}
		pool, err := pgxpool.New(ctx, conf.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(pool, conf.Storage.Key)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return pg, nil, nil
	default:
		fs := store.NewFileStore(conf.Storage.Path)
		return fs, fs, nil
	}
}

// buildController seeds the editor from storage.
func buildController(ctx context.Context, conf *config.Config, st documentStore) (*editor.Controller, error) {
	ids := model.NewIDGenerator()
	occs, summary, serialized, err := st.Load(ctx, ids)
	if err != nil {
		return nil, err
	}

	initial := editor.State{
		Occurrences: occs,
		PreviewText: summary,
		Plan:        plan.Plan{Rule: plan.Custom{}},
	}
	if serialized != nil {
		initial.Plan = plan.FromSerialized(*serialized)
	}
	appLog.Info("document loaded", "occurrences", len(occs), "has_plan", serialized != nil)

	composer := preview.New(locale.Resolve(conf.Locale))
	return editor.New(st,
		editor.WithInitialState(initial),
		editor.WithIDGenerator(ids),
		editor.WithComposer(composer),
	), nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.Parse()

	return cfg
}
