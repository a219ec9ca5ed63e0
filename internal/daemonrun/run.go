// Package daemonrun hosts the long-running vodbridge process: logging,
// single-instance locking, collaborator wiring and shutdown.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"vodbridge/internal/config"
	"vodbridge/internal/logging"
)

// ErrAlreadyRunning reports that another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another vodbridge instance is already running")

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// DryRun forces workflow.dry_run on for this process.
	DryRun bool
	// Once runs recovery and a single cycle, then exits.
	Once bool
}

// Run starts the vodbridge poll loop and blocks until SIGINT/SIGTERM, a
// fatal pipeline error, or the end of a single cycle when Once is set.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.DryRun {
		cfg.Workflow.DryRun = true
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vodbridge-%s.log", runID))
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vodbridge.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)

	unlock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer unlock()

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(logger, cfg)

	rt, err := build(signalCtx, cfg, logger, opts)
	if err != nil {
		logger.Error("startup failed", logging.Error(err))
		return err
	}
	defer rt.Close()

	logger.Info("vodbridge started",
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.String("completed_dir", cfg.Paths.CompletedDir),
		logging.Bool("dry_run", cfg.Workflow.DryRun),
		logging.Duration("check_interval", cfg.CheckInterval()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	err = serve(signalCtx, rt, cfg, logger)
	if errors.Is(err, context.Canceled) || signalCtx.Err() != nil {
		logger.Info("vodbridge shutting down", logging.String(logging.FieldEventType, "daemon_stopped"))
		return nil
	}
	if err != nil {
		logger.Error("vodbridge stopped", logging.Error(err), logging.String(logging.FieldEventType, "daemon_failed"))
	}
	return err
}

// serve runs the scheduler and, when configured, the metrics listener. The
// listener stops when the scheduler returns.
func serve(ctx context.Context, rt *runtime, cfg *config.Config, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return rt.scheduler.Run(runCtx)
	})
	if bind := strings.TrimSpace(cfg.Metrics.Bind); bind != "" && rt.metrics != nil {
		g.Go(func() error {
			return rt.metrics.Serve(runCtx, bind, logging.NewComponentLogger(logger, "metrics"))
		})
	}
	return g.Wait()
}

func acquireLock(path string) (func(), error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "vodbridge.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, dep := range CheckDependencies(cfg) {
		attrs = append(attrs, logging.Bool(dep.Key+"_available", dep.Available))
	}
	attrs = append(attrs, logging.String("metrics_bind", cfg.Metrics.Bind))
	logger.Info("dependency snapshot", attrs...)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
