package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"github.com/mmcdole/appshelf/internal/domain"
)

// Backend is the store daemon behind the RPC service
type Backend interface {
	QueryPackages(ctx context.Context, queries []domain.PackageQuery) (map[string]domain.Package, error)
	Installed(ctx context.Context, name string) (bool, error)
	JobByName(ctx context.Context, name string) (*domain.Job, error)
	Install(ctx context.Context, queries []domain.PackageQuery) (domain.Job, error)
	Remove(ctx context.Context, queries []domain.PackageQuery) (domain.Job, error)
	Open(ctx context.Context, query domain.PackageQuery) error
	DownloadSize(ctx context.Context, queries []domain.PackageQuery) (int64, error)
	Jobs(ctx context.Context) ([]domain.Job, error)
	Version() string
}

// Server exposes a Backend via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer listens on the socket path. A stale socket file is replaced.
func NewServer(ctx context.Context, path string, backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("bridge server requires a backend")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{backend: backend, logger: logger.With("component", "bridge"), ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path
func (s *Server) Path() string { return s.path }

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.logger.Info("bridge listening", "socket", s.path)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed", "error", err)
				continue
			}
			if !s.track(conn) {
				_ = conn.Close()
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// Close stops accepting, drops open connections and removes the socket.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket", "socket", s.path, "error", err)
	}
}

type service struct {
	backend Backend
	logger  *slog.Logger
	ctx     context.Context
}

func (s *service) QueryPackages(req QueryPackagesRequest, resp *QueryPackagesResponse) error {
	pkgs, err := s.backend.QueryPackages(s.ctx, req.Queries)
	if err != nil {
		return err
	}
	resp.Packages = pkgs
	return nil
}

func (s *service) AppInstalled(req AppInstalledRequest, resp *AppInstalledResponse) error {
	installed, err := s.backend.Installed(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Installed = installed
	return nil
}

func (s *service) GetJobByName(req GetJobByNameRequest, resp *GetJobByNameResponse) error {
	job, err := s.backend.JobByName(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) InstallPackages(req PackagesRequest, resp *JobResponse) error {
	job, err := s.backend.Install(s.ctx, req.Queries)
	if err != nil {
		s.logger.Warn("install rejected", "error", err)
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) RemovePackages(req PackagesRequest, resp *JobResponse) error {
	job, err := s.backend.Remove(s.ctx, req.Queries)
	if err != nil {
		s.logger.Warn("remove rejected", "error", err)
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) OpenApp(req OpenAppRequest, _ *OpenAppResponse) error {
	return s.backend.Open(s.ctx, req.Query)
}

func (s *service) QueryDownloadSize(req QueryDownloadSizeRequest, resp *QueryDownloadSizeResponse) error {
	size, err := s.backend.DownloadSize(s.ctx, req.Queries)
	if err != nil {
		return err
	}
	resp.Size = size
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	jobs, err := s.backend.Jobs(s.ctx)
	if err != nil {
		return err
	}
	resp.Version = s.backend.Version()
	resp.PID = os.Getpid()
	resp.Jobs = jobs
	return nil
}
