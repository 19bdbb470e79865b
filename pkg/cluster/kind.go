package cluster

import (
	"context"
	"fmt"
	"time"

	"k8s.io/client-go/tools/clientcmd"
	kindcluster "sigs.k8s.io/kind/pkg/cluster"
)

const (
	// kindReadyTimeout bounds how long kind waits for the control plane
	kindReadyTimeout = 2 * time.Minute
)

// KindProvider is the subset of the kind cluster provider used here.
// *kindcluster.Provider satisfies it.
type KindProvider interface {
	Create(name string, options ...kindcluster.CreateOption) error
	Delete(name, explicitKubeconfigPath string) error
	List() ([]string, error)
	KubeConfig(name string, internal bool) (string, error)
}

// NewKindProvider returns a kind provider with the runtime auto-detected
func NewKindProvider() KindProvider {
	return kindcluster.NewProvider()
}

// CreateKindCluster creates a kind cluster and returns its kubeconfig.
// kubeconfigPath receives kind's own kubeconfig export so the user's default
// kubeconfig is left untouched.
func CreateKindCluster(ctx context.Context, p KindProvider, name, nodeImage, kubeconfigPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exists, err := KindClusterExists(p, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check if cluster exists: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("cluster '%s' already exists", name)
	}

	opts := []kindcluster.CreateOption{
		kindcluster.CreateWithWaitForReady(kindReadyTimeout),
		kindcluster.CreateWithKubeconfigPath(kubeconfigPath),
		kindcluster.CreateWithDisplayUsage(false),
		kindcluster.CreateWithDisplaySalutation(false),
	}
	if nodeImage != "" {
		opts = append(opts, kindcluster.CreateWithNodeImage(nodeImage))
	}

	if err := p.Create(name, opts...); err != nil {
		return nil, fmt.Errorf("failed to create kind cluster: %w", err)
	}

	kubeconfig, err := p.KubeConfig(name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	return []byte(kubeconfig), nil
}

// DeleteKindCluster deletes a kind cluster
func DeleteKindCluster(p KindProvider, name, kubeconfigPath string) error {
	exists, err := KindClusterExists(p, name)
	if err != nil {
		return fmt.Errorf("failed to check if cluster exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("cluster '%s' does not exist", name)
	}

	if err := p.Delete(name, kubeconfigPath); err != nil {
		return fmt.Errorf("failed to delete kind cluster: %w", err)
	}
	return nil
}

// KindClusterExists reports whether a kind cluster with the given name exists
func KindClusterExists(p KindProvider, name string) (bool, error) {
	clusters, err := p.List()
	if err != nil {
		return false, fmt.Errorf("failed to list kind clusters: %w", err)
	}
	for _, c := range clusters {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}

// EndpointFromKubeconfig returns the API server URL of the kubeconfig's current context
func EndpointFromKubeconfig(kubeconfig []byte) (string, error) {
	cfg, err := clientcmd.Load(kubeconfig)
	if err != nil {
		return "", fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	kubeContext, ok := cfg.Contexts[cfg.CurrentContext]
	if !ok {
		return "", fmt.Errorf("current context %q not found in kubeconfig", cfg.CurrentContext)
	}

	c, ok := cfg.Clusters[kubeContext.Cluster]
	if !ok {
		return "", fmt.Errorf("cluster %q referenced by context %q not found in kubeconfig", kubeContext.Cluster, cfg.CurrentContext)
	}

	if c.Server == "" {
		return "", fmt.Errorf("cluster %q has no server address", kubeContext.Cluster)
	}
	return c.Server, nil
}
