package discovery

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ProbeFunc reports whether the gRPC health service at target is SERVING.
type ProbeFunc func(ctx context.Context, target string) (bool, error)

// HealthRegistry offers only backends whose gRPC health endpoint last
// answered SERVING and which have not failed a relay since. Backends are
// presumed healthy until the first probe.
type HealthRegistry struct {
	backends []string
	targets  map[string]string
	interval time.Duration
	timeout  time.Duration
	probe    ProbeFunc
	logger   logging.Logger

	mu      sync.RWMutex
	healthy map[string]bool

	connMu sync.Mutex
	conns  map[string]*grpc.ClientConn
}

// NewHealthRegistry probes every backend on healthPort of the backend's host.
func NewHealthRegistry(backends []string, healthPort int, interval, timeout time.Duration, l logging.Logger) (*HealthRegistry, error) {
	backends = normalize(backends)
	r := &HealthRegistry{
		backends: backends,
		targets:  make(map[string]string, len(backends)),
		interval: interval,
		timeout:  timeout,
		logger:   l.With("module", "health_registry"),
		healthy:  make(map[string]bool, len(backends)),
		conns:    make(map[string]*grpc.ClientConn),
	}
	r.probe = r.grpcProbe

	for _, b := range backends {
		target, err := HealthTarget(b, healthPort)
		if err != nil {
			return nil, err
		}
		r.targets[b] = target
		r.healthy[b] = true
	}
	return r, nil
}

// HealthTarget derives host:port of the health endpoint for a backend URL.
func HealthTarget(backend string, port int) (string, error) {
	u, err := url.Parse(backend)
	if err != nil {
		return "", fmt.Errorf("backend %q: %w", backend, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("backend %q: missing host", backend)
	}
	if port <= 0 {
		return "", fmt.Errorf("backend %q: invalid health port %d", backend, port)
	}
	return net.JoinHostPort(u.Hostname(), strconv.Itoa(port)), nil
}

func (r *HealthRegistry) Init() Candidates {
	r.mu.RLock()
	urls := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		if r.healthy[b] {
			urls = append(urls, b)
		}
	}
	r.mu.RUnlock()

	return &listCandidates{urls: urls, onFail: r.markSuspect}
}

func (r *HealthRegistry) markSuspect(backend string) {
	r.mu.Lock()
	r.healthy[backend] = false
	r.mu.Unlock()
}

// Healthy returns the backends currently offered to relays.
func (r *HealthRegistry) Healthy() []string {
	c := r.Init().(*listCandidates)
	return c.urls
}

// CheckNow probes every backend once.
func (r *HealthRegistry) CheckNow(ctx context.Context) {
	var wg sync.WaitGroup
	for _, b := range r.backends {
		wg.Add(1)
		go func(backend string) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			ok, err := r.probe(pctx, r.targets[backend])
			if err != nil {
				r.logger.Debug(ctx, "health probe failed", "backend", backend, "error", err.Error())
			}

			r.mu.Lock()
			changed := r.healthy[backend] != ok
			r.healthy[backend] = ok
			r.mu.Unlock()

			if changed {
				r.logger.Info(ctx, "backend health changed", "backend", backend, "healthy", ok)
			}
		}(b)
	}
	wg.Wait()
}

// Run probes on every tick until ctx is done.
func (r *HealthRegistry) Run(ctx context.Context) error {
	defer r.closeConns()

	r.CheckNow(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.CheckNow(ctx)
		}
	}
}

func (r *HealthRegistry) conn(target string) (*grpc.ClientConn, error) {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if c, ok := r.conns[target]; ok {
		return c, nil
	}
	c, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	r.conns[target] = c
	return c, nil
}

func (r *HealthRegistry) closeConns() {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	for t, c := range r.conns {
		_ = c.Close()
		delete(r.conns, t)
	}
}

func (r *HealthRegistry) grpcProbe(ctx context.Context, target string) (bool, error) {
	c, err := r.conn(target)
	if err != nil {
		return false, err
	}
	resp, err := healthpb.NewHealthClient(c).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
