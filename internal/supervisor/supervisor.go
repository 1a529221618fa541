// Package supervisor owns the daemon's whole process lifetime: it brings
// up the on-disk layout, recovers session state from a prior run,
// reconciles it against the live multiplexer, binds the request socket,
// and runs the reconciliation and cleanup background tasks until asked to
// shut down.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/handler"
	"github.com/HexSleeves/summ-daemon/internal/hooks"
	"github.com/HexSleeves/summ-daemon/internal/logger"
	"github.com/HexSleeves/summ-daemon/internal/metrics"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
	"github.com/HexSleeves/summ-daemon/internal/registry"
)

// Config is everything the supervisor needs to start. The zero value is
// not usable; callers (cmd/summ-daemon) fill this in from the resolved
// configuration file and flags.
type Config struct {
	// BaseDir is the per-user root: BASE/sessions, BASE/logs, BASE/bin,
	// BASE/daemon.sock and BASE/daemon.pid all live under it.
	BaseDir string

	Mux    multiplexer.Multiplexer
	FS     fsys.FS
	Logger *logger.Logger

	ReconcileInterval time.Duration
	CleanupInterval   time.Duration
	Retention         time.Duration
	StaleThreshold    time.Duration

	// AcceptTimeout bounds how long one connection's request/response
	// round trip may take before the supervisor gives up on it.
	AcceptTimeout time.Duration

	// ShutdownGrace bounds how long Shutdown waits for in-flight
	// connections to finish on their own before returning anyway.
	ShutdownGrace time.Duration

	// MetricsEnabled and MetricsAddr configure the opt-in Prometheus
	// listener. Disabled unless explicitly turned on.
	MetricsEnabled bool
	MetricsAddr    string
}

func (c Config) withDefaults() Config {
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 5 * time.Second
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = registry.StaleThreshold
	}
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = 30 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	return c
}

func (c Config) sessionsDir() string { return filepath.Join(c.BaseDir, "sessions") }
func (c Config) logsDir() string     { return filepath.Join(c.BaseDir, "logs") }
func (c Config) binDir() string      { return filepath.Join(c.BaseDir, "bin") }
func (c Config) socketPath() string  { return filepath.Join(c.BaseDir, "daemon.sock") }
func (c Config) pidPath() string     { return filepath.Join(c.BaseDir, "daemon.pid") }

// Supervisor is one running instance of the daemon for one BASE directory.
// Exactly one Supervisor may hold the pidfile lock for a given BaseDir at
// a time; a second instance fails fast in Run.
type Supervisor struct {
	cfg      Config
	registry *registry.Registry
	repo     *registry.Repository
	handler  *handler.Handler

	pidLock    *flock.Flock
	listener   net.Listener
	metricsSrv *metrics.Server

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	stopTasks    chan struct{}
}

// New wires a Supervisor's internal registry, repository, and request
// handler from cfg. It does not touch the filesystem or network; that
// happens in Run.
func New(cfg Config) *Supervisor {
	cfg = cfg.withDefaults()

	reg := registry.New()
	repo := registry.NewRepository(cfg.FS, cfg.sessionsDir())

	h := &handler.Handler{
		FS:             cfg.FS,
		Mux:            cfg.Mux,
		Registry:       reg,
		Repo:           repo,
		BaseDir:        cfg.BaseDir,
		StaleThreshold: cfg.StaleThreshold,
		Logger:         cfg.Logger,
	}

	return &Supervisor{
		cfg:        cfg,
		registry:   reg,
		repo:       repo,
		handler:    h,
		metricsSrv: metrics.New(cfg.MetricsEnabled, cfg.MetricsAddr),
		stopTasks:  make(chan struct{}),
	}
}

func (s *Supervisor) log() *logger.Logger { return s.cfg.Logger }

func (s *Supervisor) logInfo(msg string, args ...any) {
	if l := s.log(); l != nil {
		l.Info(msg, args...)
	}
}

func (s *Supervisor) logWarn(msg string, args ...any) {
	if l := s.log(); l != nil {
		l.Warn(msg, args...)
	}
}

func (s *Supervisor) logError(msg string, args ...any) {
	if l := s.log(); l != nil {
		l.Error(msg, args...)
	}
}

// Run performs the full startup sequence, then blocks serving requests and
// running background tasks until ctx is canceled, at which point it shuts
// down gracefully and returns. A non-nil error means startup itself
// failed; shutdown errors are logged, not returned, since by then the
// caller has already committed to exiting.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.acquireSingleton(); err != nil {
		return err
	}
	defer s.releaseSingleton()

	if err := s.ensureDirs(); err != nil {
		return fmt.Errorf("supervisor: preparing directories: %w", err)
	}

	if err := hooks.Install(s.cfg.FS, s.cfg.binDir()); err != nil {
		return fmt.Errorf("supervisor: installing reporter: %w", err)
	}

	if err := s.cfg.Mux.CheckAvailable(ctx); err != nil {
		return fmt.Errorf("supervisor: multiplexer unavailable: %w", err)
	}

	if err := s.recover(ctx); err != nil {
		s.logWarn("startup recovery encountered errors", "error", err)
	}

	if err := s.bind(); err != nil {
		return fmt.Errorf("supervisor: binding socket: %w", err)
	}
	defer s.listener.Close()

	if err := s.metricsSrv.Start(); err != nil {
		s.logWarn("metrics listener failed to start, continuing without it", "error", err)
	}

	s.logInfo("daemon ready", "base_dir", s.cfg.BaseDir, "socket", s.cfg.socketPath())

	s.wg.Add(1)
	go s.reconcileLoop(ctx)
	s.wg.Add(1)
	go s.cleanupLoop(ctx)

	s.acceptLoop(ctx)

	s.shutdown()
	return nil
}

// ensureDirs creates the fixed subtree every other step assumes exists.
func (s *Supervisor) ensureDirs() error {
	for _, dir := range []string{s.cfg.sessionsDir(), s.cfg.logsDir(), s.cfg.binDir()} {
		if err := s.cfg.FS.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// acquireSingleton takes an exclusive, non-blocking lock on BASE/daemon.pid,
// refusing to start a second supervisor over the same BASE directory.
func (s *Supervisor) acquireSingleton() error {
	if err := os.MkdirAll(s.cfg.BaseDir, 0o755); err != nil {
		return fmt.Errorf("supervisor: preparing base dir: %w", err)
	}

	lock := flock.New(s.cfg.pidPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("supervisor: acquiring pidfile lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("supervisor: another daemon already holds %s", s.cfg.pidPath())
	}
	s.pidLock = lock
	return nil
}

func (s *Supervisor) releaseSingleton() {
	if s.pidLock != nil {
		_ = s.pidLock.Unlock()
	}
}

// bind removes any stale socket left by a prior unclean shutdown and
// listens fresh, mode 0600: only this user's other processes may connect.
func (s *Supervisor) bind() error {
	sockPath := s.cfg.socketPath()
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(sockPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}

	s.listener = ln
	return nil
}

// shutdown stops the background tasks and waits up to ShutdownGrace for
// them to notice. It never touches the multiplexer: hosted sessions
// outlive the daemon process by design.
func (s *Supervisor) shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.stopTasks)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.logWarn("background tasks did not finish within grace period")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.metricsSrv.Stop(shutdownCtx); err != nil {
		s.logWarn("metrics listener shutdown failed", "error", err)
	}

	s.logInfo("daemon stopped")
}
