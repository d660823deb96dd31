package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckoutServiceName is the service name reported through grpc.health.v1.
const CheckoutServiceName = "gold.inventory.Checkout"

// GRPCHandler serves grpc.health.v1.Health, reporting SERVING while the
// store answers pings.
type GRPCHandler struct {
	health  *health.Server
	store   Pinger
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	serving bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewGRPCHandler(store Pinger, timeout time.Duration, logger *zap.Logger) *GRPCHandler {
	h := &GRPCHandler{
		health:  health.NewServer(),
		store:   store,
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *GRPCHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// Probe pings the store once and updates the reported status.
func (h *GRPCHandler) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.store.Ping(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	up := err == nil
	if up != h.serving {
		if up {
			h.logger.Info("store reachable, serving")
			h.setStatus(healthpb.HealthCheckResponse_SERVING)
		} else {
			h.logger.Warn("store unreachable, not serving", zap.Error(err))
			h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		}
		h.serving = up
	}
	return up
}

func (h *GRPCHandler) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(CheckoutServiceName, status)
}

// Start probes immediately and then every interval until Stop.
func (h *GRPCHandler) Start(interval time.Duration) {
	h.Probe(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				h.Probe(context.Background())
			}
		}
	}()
}

// Stop ends probing and marks every service NOT_SERVING.
func (h *GRPCHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.health.Shutdown()
	})
	h.wg.Wait()
}
