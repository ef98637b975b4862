// Package inventory parses inventory service flags and launches the service.
package inventory

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	entrypoint "github.com/louisbranch/inventag/internal/platform/cmd"
	"github.com/louisbranch/inventag/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/inventag/internal/platform/grpc"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
	server "github.com/louisbranch/inventag/internal/services/inventory/app"
)

// Config holds inventory command configuration.
type Config struct {
	HTTPAddr   string `env:"INVENTAG_HTTP_ADDR"`
	GRPCPort   int    `env:"INVENTAG_GRPC_PORT" envDefault:"0"`
	LookupBase string `env:"INVENTAG_LOOKUP_BASE"`
	BrandRef   string `env:"INVENTAG_BRAND_REF"`
	Currency   string `env:"INVENTAG_CURRENCY"`
	Title      string `env:"INVENTAG_LABEL_TITLE"`

	// Probe checks the gRPC health endpoint of a running service and exits.
	Probe bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The inventory HTTP API address")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The gRPC health port (0 disables it)")
	fs.StringVar(&cfg.LookupBase, "lookup-base", cfg.LookupBase, "Base URL encoded into label symbols")
	fs.StringVar(&cfg.BrandRef, "brand", cfg.BrandRef, "Brand image reference (builtin:<name>, path or URL)")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "ISO 4217 currency shown on labels")
	fs.StringVar(&cfg.Title, "label-title", cfg.Title, "Banner title printed on labels")
	fs.BoolVar(&cfg.Probe, "probe", false, "Check the health of a running service on -grpc-port (or the default port) and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.HTTPAddr = discovery.OrDefaultListenAddr(cfg.HTTPAddr, discovery.ServiceInventory)
	if cfg.LookupBase == "" {
		cfg.LookupBase = artifact.DefaultLookupBase
	}
	if cfg.BrandRef == "" {
		cfg.BrandRef = asset.BrandRef
	}
	if cfg.Currency == "" {
		cfg.Currency = document.DefaultCurrency
	}
	if cfg.GRPCPort < 0 {
		return Config{}, fmt.Errorf("grpc port must not be negative")
	}
	return cfg, nil
}

func (c Config) options() server.Options {
	opts := server.Options{
		HTTPAddr:   c.HTTPAddr,
		LookupBase: c.LookupBase,
		BrandRef:   c.BrandRef,
		Currency:   c.Currency,
		Title:      c.Title,
	}
	if c.GRPCPort > 0 {
		opts.GRPCAddr = fmt.Sprintf(":%d", c.GRPCPort)
	}
	return opts
}

// Run starts the inventory HTTP API service, or probes a running one.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Probe {
		return Probe(ctx, cfg)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceInventory, func(ctx context.Context) error {
		return server.Run(ctx, cfg.options())
	})
}

// Probe waits for the local service's gRPC health endpoint to report SERVING.
func Probe(ctx context.Context, cfg Config) error {
	port := cfg.GRPCPort
	if port == 0 {
		port = discovery.GRPCPort(discovery.ServiceInventory)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	return platformgrpc.Probe(ctx, addr, server.HealthService, timeouts.Probe, log.Printf)
}
