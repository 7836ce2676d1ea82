// Package server implements the HTTP/JSON surface over the task store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/store"
)

// Request body caps.
const (
	maxBodyBytes       = 1 << 20  // single-object requests
	maxBatchBodyBytes  = 8 << 20  // batch create, get-many, close, reopen
	maxImportBodyBytes = 64 << 20 // buffered import
)

// Concurrency caps for the heavyweight endpoints.
const (
	importConcurrency = 1
	exportConcurrency = 2
	searchConcurrency = 4
)

// Server owns the HTTP surface, the store, and the request policy knobs.
type Server struct {
	addr          string
	store         store.TaskStore
	projectPrefix string
	logger        *slog.Logger

	service *taskService
	gitRefs *gitRefService

	apiToken   string
	adminToken string

	importSlots chan struct{}
	exportSlots chan struct{}
	searchSlots chan struct{}

	httpServer *http.Server
}

// Options configures a Server.
type Options struct {
	Addr          string
	Store         store.TaskStore
	ProjectPrefix string
	Logger        *slog.Logger
}

// New builds a Server. API and admin tokens are read from GRNS_API_TOKEN and
// GRNS_ADMIN_TOKEN.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	prefix, ae := normalizePrefix(opts.ProjectPrefix)
	if ae != nil {
		return nil, ae
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := newTaskService(opts.Store, prefix)
	return &Server{
		addr:          opts.Addr,
		store:         opts.Store,
		projectPrefix: prefix,
		logger:        logger,
		service:       svc,
		gitRefs:       newGitRefService(opts.Store, svc),
		apiToken:      os.Getenv("GRNS_API_TOKEN"),
		adminToken:    os.Getenv("GRNS_ADMIN_TOKEN"),
		importSlots:   make(chan struct{}, importConcurrency),
		exportSlots:   make(chan struct{}, exportConcurrency),
		searchSlots:   make(chan struct{}, searchConcurrency),
	}, nil
}

// ListenAndServe blocks serving requests until ctx is cancelled or the
// listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr, err := s.ListenAddr()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr), slog.String("project", s.projectPrefix))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ListenAddr validates the configured bind address. Binding to a non
// loopback interface requires GRNS_ALLOW_REMOTE=1.
func (s *Server) ListenAddr() (string, error) {
	addr := s.addr
	if addr == "" {
		addr = "127.0.0.1:4242"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if !isAllowedListenHost(host) {
		return "", fmt.Errorf("refusing to bind %q without GRNS_ALLOW_REMOTE=1", addr)
	}
	return addr, nil
}

func isAllowedListenHost(host string) bool {
	if allow := strings.TrimSpace(os.Getenv("GRNS_ALLOW_REMOTE")); allow == "1" || strings.EqualFold(allow, "true") {
		return true
	}
	if host == "" || host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}

// acquireSlot takes a limiter slot without blocking. Callers get a 429 when
// the lane is full.
func acquireSlot(slots chan struct{}) bool {
	select {
	case slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func releaseSlot(slots chan struct{}) {
	<-slots
}
