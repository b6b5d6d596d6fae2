// Package server implements the pfq control daemon: a gRPC service on
// a unix socket fronting the function factory, the group table and the
// packet engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/bpffs"
	"github.com/frobware/go-pfq/config"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/engine"
	"github.com/frobware/go-pfq/factory"
	"github.com/frobware/go-pfq/functions"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/lock"
	"github.com/frobware/go-pfq/server/api"
	"github.com/frobware/go-pfq/store/sqlite"
)

// RunConfig configures the daemon.
type RunConfig struct {
	Config config.Config
	Logger *slog.Logger
}

// Run starts the daemon and blocks until ctx is cancelled. It fails at
// once if another daemon holds the runtime directory.
func Run(ctx context.Context, cfg RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dirs, err := cfg.Config.RuntimeDirs()
	if err != nil {
		return err
	}
	if err := dirs.EnsureDirectories(); err != nil {
		return fmt.Errorf("runtime directory setup failed: %w", err)
	}

	err = lock.TryRun(ctx, dirs.Lock(), func(ctx context.Context, scope lock.Scope) error {
		logger.Debug("instance lock acquired", "path", scope.Path(), "fd", scope.FD())
		return run(ctx, cfg.Config, logger)
	})
	if errors.Is(err, lock.ErrHeld) {
		return fmt.Errorf("another pfq daemon is running on %s: %w", dirs.Base(), err)
	}
	return err
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var dm devmap.Matrix
	if pin := cfg.DevMap.PinPath; pin != "" {
		if err := bpffs.CheckPinPath(bpffs.DefaultMountInfoPath, pin); err != nil {
			return err
		}
		p, err := devmap.OpenPinned(pin)
		if err != nil {
			return err
		}
		defer p.Close()
		logger.Info("using pinned device map", "path", p.Path())
		dm = p
	} else {
		dm = devmap.NewTable()
	}

	var groups *group.Manager
	fac := factory.New(
		factory.WithLogger(logger),
		factory.WithCapacity(cfg.Factory.Capacity),
		factory.WithDismiss(func(name string, fn pfq.Func) { groups.Dismiss(name, fn) }),
	)
	groups = group.New(dm, fac, logger)
	if err := fac.Init(functions.Builtin()...); err != nil {
		return fmt.Errorf("function factory init: %w", err)
	}
	defer fac.Teardown()

	var (
		store *sqlite.Store
		rec   *recorder
	)
	if interval := cfg.Stats.Interval.Duration; interval > 0 {
		dbPath := cfg.StatsDBPath()
		st, err := sqlite.New(ctx, dbPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open store at %s: %w", dbPath, err)
		}
		defer st.Close()
		runID := uuid.New()
		if err := st.BeginRun(ctx, runID, time.Now()); err != nil {
			return err
		}
		store = st
		rec = newRecorder(groups, st, runID, interval, cfg.Stats.Retention.Duration, logger)
	} else {
		logger.Info("statistics recording disabled")
	}

	lis, err := Listen(cfg.SocketPath())
	if err != nil {
		return err
	}

	srv := New(fac, groups, engine.New(dm, groups, logger), store, logger)

	g, ctx := errgroup.WithContext(ctx)
	if rec != nil {
		g.Go(func() error { return rec.run(ctx) })
	}
	g.Go(func() error { return srv.Serve(ctx, lis) })
	return g.Wait()
}

// Listen replaces any stale socket at socketPath and listens on it.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0660); err != nil {
		lis.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return lis, nil
}

// Server implements the pfq control service.
type Server struct {
	factory   *factory.Factory
	groups    *group.Manager
	engine    *engine.Engine
	store     *sqlite.Store
	logger    *slog.Logger
	opCounter atomic.Uint64
}

// New returns a Server over the given components. store may be nil,
// in which case StatsHistory fails with FailedPrecondition.
func New(fac *factory.Factory, groups *group.Manager, eng *engine.Engine, store *sqlite.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// op_id is assigned per request by the interceptor.
	logger = WithOpIDHandler(logger)
	return &Server{
		factory: fac,
		groups:  groups,
		engine:  eng,
		store:   store,
		logger:  logger.With("component", "server"),
	}
}

// Serve answers requests on lis until ctx is cancelled, then stops
// gracefully. lis must be a unix socket listener: callers are
// identified by their peer credentials.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer(
		grpc.Creds(peerCredentials{}),
		grpc.UnaryInterceptor(s.loggingInterceptor()),
	)
	api.RegisterControlServer(gs, s)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.InfoContext(ctx, "pfq gRPC server listening", "socket", lis.Addr().String())
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("unix socket server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down gRPC server")
		gs.GracefulStop()
		return nil
	})
	return g.Wait()
}

// loggingInterceptor assigns a monotonic operation ID to each request
// and logs errors.
func (s *Server) loggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		opID := s.opCounter.Add(1)
		ctx = ContextWithOpID(ctx, opID)
		resp, err := handler(ctx, req)
		if err != nil {
			s.logger.ErrorContext(ctx, "grpc error", "method", info.FullMethod, "error", err)
		}
		return resp, err
	}
}
