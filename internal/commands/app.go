package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/backup"
	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/config"
	"github.com/moneymngr/moneymngr/internal/history"
	"github.com/moneymngr/moneymngr/internal/importer"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/logger"
	"github.com/moneymngr/moneymngr/internal/parser"
	"github.com/moneymngr/moneymngr/internal/store"
	"github.com/moneymngr/moneymngr/internal/threshold"
)

// app is everything a command needs, built from moneymngr.yaml.
type app struct {
	cfg  *config.Config
	dir  string
	out  io.Writer
	log  zerolog.Logger
	loc  *time.Location
	eval threshold.Evaluator

	store      *store.Store
	actions    *actionlog.Service
	accounts   *accounts.Service
	categories *categories.Service
	journal    *journal.Service
	history    *history.Service
	importer   *importer.Service
	magic      *parser.MagicBox

	closers []func() error
}

func openApp(opts *rootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	loc, err := cfg.Import.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:  cfg,
		dir:  filepath.Dir(opts.configPath),
		out:  cmd.OutOrStdout(),
		log:  logger.New(cmd.ErrOrStderr(), cfg.Log.Level),
		loc:  loc,
		eval: threshold.Evaluator{Symbol: cfg.Currency.Symbol},
	}
	logger.SetDefault(a.log)

	s, err := store.Open(a.path(cfg.Database.Path))
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, s.Close)

	a.actions = actionlog.NewService(a.path(cfg.Log.File), a.log)
	if err := a.actions.Init(); err != nil {
		a.log.Warn().Err(err).Msg("action log disabled")
		a.actions = nil
	} else {
		a.closers = append(a.closers, a.actions.Dispose)
	}

	a.accounts = accounts.NewService(s, a.actions)
	a.categories = categories.NewService(s, a.actions)
	a.journal = journal.NewService(s, a.actions)
	a.history = history.NewService(s)
	a.importer = importer.NewService(s, a.actions)
	a.importer.SetLocation(loc)
	a.magic = parser.NewMagicBox(cfg.Parser.Thresholds())
	return a, nil
}

// path resolves p against the directory holding the config file.
func (a *app) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.dir, p)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) money(d decimal.Decimal) string {
	return a.cfg.Currency.Symbol + d.StringFixed(2)
}

// objectStore returns GCS when a bucket is configured and a local
// directory otherwise.
func (a *app) objectStore(ctx context.Context) (backup.ObjectStore, error) {
	if a.cfg.Backup.Bucket == "" {
		return backup.NewDirStore(a.path(a.cfg.Backup.LocalDir)), nil
	}
	gcs, err := backup.NewGCSStore(ctx, a.cfg.Backup.Bucket, a.cfg.Backup.Prefix)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, gcs.Close)
	return gcs, nil
}

func (a *app) backup(ctx context.Context) (*backup.Service, *backup.SnapshotStore, error) {
	objects, err := a.objectStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	snapObjects := objects
	if a.cfg.Backup.Bucket == "" && a.cfg.Backup.SnapshotDir != "" {
		snapObjects = backup.NewDirStore(a.path(a.cfg.Backup.SnapshotDir))
	}
	svc := backup.NewService(a.store, objects, a.actions, a.log, a.cfg.Backup.Interval)
	return svc, backup.NewSnapshotStore(snapObjects), nil
}

// suggester returns the Gemini suggester, or nil when no API key is set.
func (a *app) suggester(ctx context.Context) (parser.Suggester, error) {
	key := a.cfg.LLM.APIKey()
	if key == "" {
		return nil, nil
	}
	g, err := parser.NewGeminiSuggester(ctx, key, a.cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("creating suggester: %w", err)
	}
	return g, nil
}

// run opens the app around fn.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(o, cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx, a.log)
	err = fn(ctx, a)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// parseDay reads a YYYY-MM-DD flag value in the ledger's zone.
func (a *app) parseDay(name, v string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, v, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD", name)
	}
	return t, nil
}

func (a *app) today() time.Time {
	now := time.Now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}
