package tracefeed

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/grpc"
)

// LogSink receives decoded OTLP resource logs. Implementations must be safe
// for concurrent use since Export may be called concurrently.
type LogSink interface {
	ReceiveLogs(ctx context.Context, logs []*logspb.ResourceLogs) error
}

// Receiver is an OTLP gRPC logs endpoint feeding a LogSink.
type Receiver struct {
	listener   net.Listener
	grpcServer *grpc.Server
	logger     *slog.Logger
	stopOnce   sync.Once
	stopped    chan struct{}
}

// NewReceiver listens on addr ("host:port", port 0 for ephemeral) and
// registers the logs service. Serving starts with Serve.
func NewReceiver(addr string, sink LogSink) (*Receiver, error) {
	if sink == nil {
		return nil, fmt.Errorf("log sink cannot be nil")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r := &Receiver{
		listener:   listener,
		grpcServer: grpc.NewServer(),
		logger:     slog.Default().With("component", "otlp-receiver"),
		stopped:    make(chan struct{}),
	}
	collectorlogs.RegisterLogsServiceServer(r.grpcServer, &logsService{sink: sink, logger: r.logger})

	return r, nil
}

// Serve blocks until ctx is canceled or Stop is called.
func (r *Receiver) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.stopped:
		}
	}()

	r.logger.Info("OTLP logs receiver listening", "addr", r.Endpoint())
	return r.grpcServer.Serve(r.listener)
}

// Stop gracefully shuts the server down. Safe to call more than once.
func (r *Receiver) Stop() {
	r.stopOnce.Do(func() {
		r.grpcServer.GracefulStop()
		r.listener.Close()
		close(r.stopped)
	})
}

// Endpoint returns the listening address, useful with ephemeral ports.
func (r *Receiver) Endpoint() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

type logsService struct {
	collectorlogs.UnimplementedLogsServiceServer
	sink   LogSink
	logger *slog.Logger
}

func (l *logsService) Export(ctx context.Context, req *collectorlogs.ExportLogsServiceRequest) (*collectorlogs.ExportLogsServiceResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	if err := l.sink.ReceiveLogs(ctx, req.ResourceLogs); err != nil {
		return nil, fmt.Errorf("failed to receive logs: %w", err)
	}

	l.logger.Debug("logs exported", "resource_logs", len(req.ResourceLogs))
	return &collectorlogs.ExportLogsServiceResponse{}, nil
}
