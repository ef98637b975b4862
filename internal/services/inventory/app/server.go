// Package server wires the inventory runtime: storage, credentials, label
// rendering, the HTTP API and an optional gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	"github.com/louisbranch/inventag/internal/platform/config"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
	"github.com/louisbranch/inventag/internal/services/inventory/api/httpapi"
	"github.com/louisbranch/inventag/internal/services/inventory/credential"
	"github.com/louisbranch/inventag/internal/services/inventory/labels"
	inventorysqlite "github.com/louisbranch/inventag/internal/services/inventory/storage/sqlite"
)

// HealthService is the gRPC health service name the inventory server reports.
const HealthService = "inventag.inventory.v1.InventoryService"

type serverEnv struct {
	DBPath        string `env:"INVENTAG_DB_PATH"`
	JWTSecret     string `env:"INVENTAG_JWT_SECRET"`
	AdminUsername string `env:"INVENTAG_ADMIN_USERNAME"`
	AdminPassword string `env:"INVENTAG_ADMIN_PASSWORD"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "inventory.db")
	}
	return cfg
}

// Options configures a Server beyond what the environment provides.
type Options struct {
	HTTPAddr   string
	GRPCAddr   string
	LookupBase string
	BrandRef   string
	Currency   string
	Title      string
}

// Server hosts the inventory HTTP API and storage lifecycle.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *inventorysqlite.Store
}

// New creates a configured inventory server.
func New(ctx context.Context, opts Options) (*Server, error) {
	env := loadServerEnv()
	secret := strings.TrimSpace(env.JWTSecret)
	if secret == "" {
		return nil, fmt.Errorf("INVENTAG_JWT_SECRET is required")
	}
	issuer, err := credential.NewIssuer(credential.IssuerConfig{Secret: []byte(secret)})
	if err != nil {
		return nil, fmt.Errorf("configure token issuer: %w", err)
	}
	lookup, err := artifact.NewLookup(opts.LookupBase)
	if err != nil {
		return nil, fmt.Errorf("configure lookup url: %w", err)
	}
	compositor, err := document.NewCompositor(
		document.WithCurrency(opts.Currency),
		document.WithBranding(document.Branding{Title: opts.Title}),
	)
	if err != nil {
		return nil, fmt.Errorf("configure compositor: %w", err)
	}

	store, err := openInventoryStore(env.DBPath)
	if err != nil {
		return nil, err
	}
	srv := &Server{store: store}
	if err := credential.Bootstrap(ctx, store, env.AdminUsername, env.AdminPassword); err != nil {
		srv.Close()
		return nil, err
	}

	auth, err := credential.NewAuthenticator(store, issuer)
	if err != nil {
		srv.Close()
		return nil, err
	}
	renderer, err := labels.NewRenderer(labels.Config{
		Lookup:     lookup,
		Compositor: compositor,
		Loader:     asset.NewLibrary(),
		BrandRef:   opts.BrandRef,
	})
	if err != nil {
		srv.Close()
		return nil, err
	}
	handler, err := httpapi.NewHandler(httpapi.Config{Items: store, Auth: auth, Labels: renderer})
	if err != nil {
		srv.Close()
		return nil, err
	}

	srv.httpListener, err = net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("listen on %s: %w", opts.HTTPAddr, err)
	}
	srv.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	if addr := strings.TrimSpace(opts.GRPCAddr); addr != "" {
		srv.grpcListener, err = net.Listen("tcp", addr)
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		srv.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		srv.health = health.NewServer()
		grpc_health_v1.RegisterHealthServer(srv.grpcServer, srv.health)
		srv.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		srv.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return srv, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the gRPC health listener address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves an inventory server until context cancellation.
func Run(ctx context.Context, opts Options) error {
	server, err := New(ctx, opts)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP (and gRPC health) servers until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	serveErr := make(chan error, 2)
	log.Printf("inventory HTTP API listening at %v", s.httpListener.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(s.httpListener)
	}()
	if s.grpcServer != nil {
		log.Printf("inventory gRPC health listening at %v", s.grpcListener.Addr())
		go func() {
			serveErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// Close releases inventory server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close inventory store: %v", err)
		}
	}
}

func openInventoryStore(path string) (*inventorysqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := inventorysqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory sqlite store: %w", err)
	}
	return store, nil
}
