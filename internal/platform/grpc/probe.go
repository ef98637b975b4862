// Package grpc holds gRPC client helpers for probing inventag services.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = time.Second
	checkTimeout   = time.Second
)

// ProbeStage describes where a probe failed.
type ProbeStage string

const (
	// StageConnect indicates the client could not be created.
	StageConnect ProbeStage = "connect"
	// StageHealth indicates the health service never reported SERVING.
	StageHealth ProbeStage = "health"
)

// ProbeError wraps probe failures with the stage that failed.
type ProbeError struct {
	Stage   ProbeStage
	Service string
	Err     error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e == nil {
		return "gRPC probe error"
	}
	if e.Service == "" {
		return fmt.Sprintf("gRPC %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("gRPC %s %s: %v", e.Stage, e.Service, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClientOptions returns plaintext dial options that propagate trace context.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// WaitServing polls the health service until service reports SERVING or ctx
// ends. An empty service checks the server as a whole.
func WaitServing(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := initialBackoff
	for {
		callCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for %q health: %v", service, err)
			} else {
				logf("waiting for %q health: status %s", service, resp.GetStatus())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Probe connects to addr and waits up to timeout for service to report
// SERVING.
func Probe(ctx context.Context, addr, service string, timeout time.Duration, logf func(string, ...any)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := gogrpc.NewClient(addr, ClientOptions()...)
	if err != nil {
		return &ProbeError{Stage: StageConnect, Service: service, Err: err}
	}
	defer conn.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := WaitServing(ctx, conn, service, logf); err != nil {
		return &ProbeError{Stage: StageHealth, Service: service, Err: err}
	}
	return nil
}
