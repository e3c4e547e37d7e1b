package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"colstore-go/internal/colstore"
	"colstore-go/internal/config"
	"colstore-go/internal/database"
	"colstore-go/internal/database/migrations"
	"colstore-go/internal/redact"
	"colstore-go/internal/storage"
)

// Options tune how an App is built.
type Options struct {
	// Parameters is recorded with the operation, e.g. the collection name.
	Parameters string
	// Verbose enables debug logging.
	Verbose bool
	// Stderr receives log output alongside the log file. Nil means os.Stderr.
	Stderr io.Writer
}

// App is the application layer between the CLI and the storage manager.
// It builds every dependency from config, redacts host paths out of the
// errors it returns, and owns the lifecycle of the manager and log file.
type App struct {
	cfg      *config.Config
	manager  colstore.Manager
	redactor redact.Redactor
	logger   *slog.Logger
	op       *Operation
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "SaveFile", "Watch").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	op := NewOperation(operation, opts.Parameters, time.Now())

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	redactor := redact.NewFromConfig(cfg)
	mgr, err := storage.NewManagerFromConfig(ctx, cfg.Storage, &slogAdapter{l: logger})
	if err != nil {
		logFile.Close()
		return nil, redact.Error(redactor, fmt.Errorf("opening %s storage: %w", cfg.Storage.Mode, err))
	}

	logger.Debug("operation started", "operation", op.Name, "parameters", op.Parameters, "mode", mgr.Mode())
	return &App{
		cfg:      cfg,
		manager:  mgr,
		redactor: redactor,
		logger:   logger,
		op:       op,
		logFile:  logFile,
	}, nil
}

// done records err against the operation and returns it redacted.
func (a *App) done(err error) error {
	if err == nil {
		return nil
	}
	if a.op.Err == nil {
		a.op.Err = err
	}
	return redact.Error(a.redactor, err)
}

// Mode returns the active storage mode.
func (a *App) Mode() string { return a.manager.Mode() }

// Operation returns the operation this App was created for.
func (a *App) Operation() *Operation { return a.op }

func (a *App) CreateCollection(ctx context.Context, name, description string) (*colstore.Collection, error) {
	c, err := a.manager.CreateCollection(ctx, name, description)
	return c, a.done(err)
}

func (a *App) ListCollections(ctx context.Context) ([]*colstore.Collection, error) {
	cols, err := a.manager.ListCollections(ctx)
	return cols, a.done(err)
}

func (a *App) GetCollection(ctx context.Context, name string) (*colstore.CollectionInfo, error) {
	info, err := a.manager.GetCollection(ctx, name)
	return info, a.done(err)
}

// DeleteCollection returns the number of file records removed.
func (a *App) DeleteCollection(ctx context.Context, name string) (int, error) {
	n, err := a.manager.DeleteCollection(ctx, name)
	return n, a.done(err)
}

func (a *App) SaveFile(ctx context.Context, req colstore.SaveRequest) (*colstore.FileMetadata, error) {
	meta, err := a.manager.SaveFile(ctx, req)
	return meta, a.done(err)
}

func (a *App) ReadFile(ctx context.Context, collection, path string) (string, error) {
	content, err := a.manager.ReadFile(ctx, collection, path)
	return content, a.done(err)
}

func (a *App) DeleteFile(ctx context.Context, collection, path string) error {
	return a.done(a.manager.DeleteFile(ctx, collection, path))
}

func (a *App) ListFiles(ctx context.Context, collection string) ([]*colstore.FileMetadata, error) {
	files, err := a.manager.ListFiles(ctx, collection)
	return files, a.done(err)
}

func (a *App) SyncSummary(ctx context.Context, collection string) (*colstore.SyncSummary, error) {
	s, err := a.manager.SyncSummary(ctx, collection)
	return s, a.done(err)
}

// SetSyncStatus parses rawStatus and records it for one file.
func (a *App) SetSyncStatus(ctx context.Context, collection, path, rawStatus, message string) (*colstore.FileMetadata, error) {
	status, err := colstore.ParseSyncStatus(rawStatus)
	if err != nil {
		return nil, a.done(err)
	}
	meta, err := a.manager.SetSyncStatus(ctx, collection, path, status, message)
	return meta, a.done(err)
}

func (a *App) reconciler() (colstore.Reconciling, error) {
	rec, ok := a.manager.(colstore.Reconciling)
	if !ok {
		return nil, colstore.ValidationError("", "", fmt.Sprintf("%s storage has no filesystem tree to reconcile", a.manager.Mode()))
	}
	return rec, nil
}

// Reconcile runs one pass over a collection. A pass with failed actions
// returns both the result and a partial-failure error.
func (a *App) Reconcile(ctx context.Context, name string) (*colstore.ReconcileResult, error) {
	rec, err := a.reconciler()
	if err != nil {
		return nil, a.done(err)
	}
	res, err := rec.ReconcileCollection(ctx, name)
	if err != nil {
		return nil, a.done(err)
	}
	return res, a.done(res.Err())
}

// ReconcileAll discovers new collection directories and reconciles every collection.
func (a *App) ReconcileAll(ctx context.Context) ([]*colstore.ReconcileResult, error) {
	rec, err := a.reconciler()
	if err != nil {
		return nil, a.done(err)
	}
	results, err := rec.ReconcileAll(ctx)
	return results, a.done(err)
}

// Watch runs the reconcile loop and, if a metrics address is configured,
// the HTTP endpoint until ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *App) Watch(ctx context.Context) error {
	rec, err := a.reconciler()
	if err != nil {
		return a.done(err)
	}
	interval, err := a.cfg.Reconcile.IntervalDuration()
	if err != nil {
		return a.done(err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := NewWatcher(rec, interval, a.logger)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		w.Run(ctx)
	}()

	if addr := a.cfg.Reconcile.MetricsAddr; addr != "" {
		err = Serve(ctx, addr, NewRouter(w, a.redactor), a.logger)
		stop()
	} else {
		<-ctx.Done()
	}
	<-loopDone
	return a.done(err)
}

// Close finishes the operation and releases the manager and log file.
func (a *App) Close() error {
	var merr *multierror.Error

	a.op.Finish(a.op.Err)
	if err := a.manager.Close(); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("closing storage: %w", err))
	}

	args := []any{"operation", a.op.Name, "status", a.op.Status, "elapsed", time.Since(a.op.StartedAt).String()}
	if a.op.Err != nil {
		args = append(args, "error", a.redactor.Redact(a.op.Err.Error()))
	}
	a.logger.Debug("operation finished", args...)

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("closing log file: %w", err))
		}
	}
	return merr.ErrorOrNil()
}

// databasePath returns the metadata database the storage config points at.
func databasePath(cfg config.StorageConfig) (string, error) {
	var path string
	switch cfg.Mode {
	case colstore.ModeRelational:
		path = cfg.DatabasePath
	case colstore.ModeFilesystem:
		path = cfg.MetadataDBPath
	}
	if path == "" {
		if err := storage.ValidateConfig(cfg).Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no database configured for %s storage", cfg.Mode)
	}
	return path, nil
}

// openExisting opens the database at path without migrating it.
func openExisting(path string) (*database.SQLiteDatabase, error) {
	db, err := database.OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return database.NewSQLiteDatabaseFromDB(db, nil, nil), nil
}

// DatabaseStatus reports the schema version of the configured metadata
// database without migrating it. A database that does not exist yet is at
// version 0.
func DatabaseStatus(cfg config.StorageConfig) (migrations.Status, string, error) {
	path, err := databasePath(cfg)
	if err != nil {
		return migrations.Status{}, "", err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		latest, err := migrations.LatestVersion()
		if err != nil {
			return migrations.Status{}, path, err
		}
		return migrations.Status{Latest: latest}, path, nil
	}

	db, err := openExisting(path)
	if err != nil {
		return migrations.Status{}, path, err
	}
	defer db.Close()

	st, err := db.MigrationStatus()
	return st, path, err
}

// BackupDatabase copies the configured metadata database to dest. It
// returns the path of the source database.
func BackupDatabase(ctx context.Context, cfg config.StorageConfig, dest string) (string, error) {
	path, err := databasePath(cfg)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return path, fmt.Errorf("database %s: %w", path, err)
	}

	db, err := openExisting(path)
	if err != nil {
		return path, err
	}
	defer db.Close()

	return path, db.BackupTo(ctx, dest)
}
