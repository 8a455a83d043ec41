package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthWorker exposes the standard gRPC health service.
// The relay reports SERVING while running and NOT_SERVING while draining.
type HealthWorker struct {
	log     *slog.Logger
	address string
}

func NewHealthWorker(log *slog.Logger, address string) *HealthWorker {
	return &HealthWorker{log: log, address: address}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return err
	}
	return w.Serve(ctx, listener)
}

func (w *HealthWorker) Serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		errChan <- s.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		healthServer.Shutdown()
		s.GracefulStop()
		<-errChan
		return nil
	}
}
