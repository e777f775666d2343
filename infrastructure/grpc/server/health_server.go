package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probes can ask about, next to the overall "" status.
const ServiceName = "presence.Hub"

// HealthServer serves grpc.health.v1 for orchestrators and load balancers.
// It reports NOT_SERVING until SetServing(true).
type HealthServer struct {
	log    *slog.Logger
	health *health.Server
	server *grpc.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	h := health.NewServer()
	s := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)

	hs := &HealthServer{log: log, health: h, server: s}
	hs.SetServing(false)
	return hs
}

func (h *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	h.log.Debug("Health status changed", "status", status.String())
}

// Serve blocks until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.Info("gRPC health server listening", "addr", lis.Addr().String())
	return h.server.Serve(lis)
}

// Stop marks every service NOT_SERVING then drains the server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
