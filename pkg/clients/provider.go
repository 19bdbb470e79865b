package clients

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	"github.com/jhwagner/stretch-bench/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

const defaultConcurrency = 4

// Factory builds a client from a resolved configuration
type Factory func(*rest.Config) (kubernetes.Interface, error)

// Option configures a Provider
type Option func(*Provider)

// WithFactory replaces the client factory (kubernetes.NewForConfig by default)
func WithFactory(f Factory) Option {
	return func(p *Provider) {
		p.factory = f
	}
}

// WithLogger sets the logger used for cache and probe diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Provider hands out one client per cluster descriptor, resolving credentials
// on first use and caching the result.
type Provider struct {
	resolver credentials.Resolver
	factory  Factory
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[cluster.Descriptor]kubernetes.Interface
}

// NewProvider creates a Provider that resolves credentials through resolver
func NewProvider(resolver credentials.Resolver, opts ...Option) *Provider {
	p := &Provider{
		resolver: resolver,
		factory: func(c *rest.Config) (kubernetes.Interface, error) {
			return kubernetes.NewForConfig(c)
		},
		logger:  zap.NewNop(),
		clients: make(map[cluster.Descriptor]kubernetes.Interface),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the client for d, creating it on first use
func (p *Provider) Get(ctx context.Context, d cluster.Descriptor) (kubernetes.Interface, error) {
	p.mu.RLock()
	client, exists := p.clients[d]
	p.mu.RUnlock()

	if exists {
		return client, nil
	}

	config, err := p.resolver.Resolve(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials for %s: %w", d.Endpoint(), err)
	}

	client, err = p.factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", d.Endpoint(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another caller may have won the race; keep the first client
	if existing, ok := p.clients[d]; ok {
		return existing, nil
	}
	p.clients[d] = client
	p.logger.Debug("cached client", zap.String("endpoint", d.Endpoint()), zap.String("credentialRef", d.CredentialRef()))

	return client, nil
}

// Forget drops the cached client for d
func (p *Provider) Forget(d cluster.Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, d)
}

// Probe checks that the cluster answers with its server version.
// A failed probe evicts the cached client so the next call resolves credentials again.
func (p *Provider) Probe(ctx context.Context, d cluster.Descriptor) (*version.Info, error) {
	client, err := p.Get(ctx, d)
	if err != nil {
		return nil, err
	}

	info, err := client.Discovery().ServerVersion()
	if err != nil {
		p.Forget(d)
		return nil, fmt.Errorf("failed to connect to cluster %s: %w", d.Endpoint(), err)
	}

	return info, nil
}

// ProbeResult is the outcome of probing a single cluster
type ProbeResult struct {
	Name       string
	Descriptor cluster.Descriptor
	Version    *version.Info
	Err        error
}

// ProbeAll probes every descriptor with at most concurrency probes in flight.
// Every cluster gets a result, sorted by name; a failing cluster does not stop the others.
func (p *Provider) ProbeAll(ctx context.Context, descriptors map[string]cluster.Descriptor, concurrency int) []ProbeResult {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ProbeResult, len(names))
	sem := semaphore.NewWeighted(int64(concurrency))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, name := range names {
		d := descriptors[name]
		results[i] = ProbeResult{Name: name, Descriptor: d}

		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				results[i].Err = fmt.Errorf("acquire semaphore: %w", err)
				return nil
			}
			defer sem.Release(1)

			info, err := p.Probe(groupCtx, d)
			results[i].Version = info
			results[i].Err = err
			if err != nil {
				p.logger.Debug("probe failed", zap.String("cluster", name), zap.Error(err))
			}
			// Probe failures are reported per cluster and never cancel the group
			return nil
		})
	}

	_ = group.Wait()

	return results
}
