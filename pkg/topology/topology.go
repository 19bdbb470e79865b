package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	"github.com/jhwagner/stretch-bench/pkg/config"
	"github.com/jhwagner/stretch-bench/pkg/credentials"
	"github.com/jhwagner/stretch-bench/pkg/kueue"
	"go.uber.org/zap"
)

const (
	metadataDir      = ".stretch-bench/topologies"
	metadataFilename = "metadata.json"
)

// Deps bundles the collaborators a topology needs to create or delete itself
type Deps struct {
	// Kind provisions managed clusters
	Kind cluster.KindProvider
	// Store holds credential Secrets on the central cluster
	Store *credentials.Store
	// MultiKueue and MultiKueueStore are only needed when spec.multiKueue is set
	MultiKueue      *kueue.Client
	MultiKueueStore *credentials.Store

	Logger *zap.Logger
	Out    io.Writer
}

func (d *Deps) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Topology represents a set of registered clusters
type Topology struct {
	metadata *Metadata
}

// Create registers every cluster of the topology:
// 1. Managed clusters are created with kind and their kubeconfig is stored as a Secret
// 2. External clusters are recorded from their configured url and secret
// 3. Optionally all clusters are exported to MultiKueue
// 4. Metadata is saved to disk
//
// On error everything created so far is removed again.
func Create(ctx context.Context, deps *Deps, name string, cfg *config.Topology) (_ *Topology, err error) {
	topologyDir, err := getTopologyDir(name)
	if err != nil {
		return nil, err
	}

	t := &Topology{
		metadata: &Metadata{
			Name:      name,
			CreatedAt: time.Now(),
			Namespace: deps.Store.Namespace(),
			Clusters:  make(map[string]Cluster),
		},
	}
	log := deps.logger().With(zap.String("topology", name))

	if _, statErr := os.Stat(filepath.Join(topologyDir, metadataFilename)); statErr == nil {
		return nil, fmt.Errorf("topology '%s' already exists", name)
	}

	if err := os.MkdirAll(topologyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create topology directory: %w", err)
	}

	// Track what we created for cleanup on error
	var (
		createdClusters []Cluster
		multiKueueName  string
	)

	defer func() {
		if err == nil {
			return
		}
		cleanupCtx := context.WithoutCancel(ctx)
		log.Warn("topology creation failed, cleaning up", zap.Int("clusters", len(createdClusters)), zap.Error(err))
		if multiKueueName != "" {
			teardownMultiKueue(cleanupCtx, deps, name, multiKueueName, t.metadata.Clusters)
		}
		for _, c := range createdClusters {
			teardownManaged(cleanupCtx, deps, name, c)
		}
		if rmErr := os.RemoveAll(topologyDir); rmErr != nil {
			log.Warn("failed to remove topology directory", zap.Error(rmErr))
		}
	}()

	if err := deps.Store.EnsureNamespace(ctx); err != nil {
		return nil, err
	}

	multiKueue := cfg.Spec.MultiKueue != nil
	for _, clusterCfg := range cfg.Spec.Clusters {
		var c Cluster
		if clusterCfg.IsManaged() {
			c, err = t.createManaged(ctx, deps, topologyDir, clusterCfg, multiKueue)
			if c.Managed() {
				createdClusters = append(createdClusters, c)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to create cluster '%s': %w", clusterCfg.Name, err)
			}
		} else {
			d := clusterCfg.Descriptor()
			c = Cluster{
				Name:      clusterCfg.Name,
				Endpoint:  d.Endpoint(),
				Secret:    d.CredentialRef(),
				CreatedAt: time.Now(),
			}
			fmt.Fprintf(deps.out(), "✓ Registered cluster '%s' at %s\n", c.Name, c.Endpoint)
		}
		t.metadata.Clusters[c.Name] = c
	}

	if multiKueue {
		multiKueueName = cfg.Spec.MultiKueue.Name
		if err := t.exportMultiKueue(ctx, deps, multiKueueName); err != nil {
			return nil, err
		}
	}

	if err := t.save(); err != nil {
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	return t, nil
}

// createManaged creates a kind cluster and stores its kubeconfig Secret.
// When the cluster is exported to MultiKueue the Secret carries the
// docker-network kubeconfig so other kind clusters can reach it; the
// descriptor endpoint stays host-reachable.
func (t *Topology) createManaged(ctx context.Context, deps *Deps, topologyDir string, clusterCfg config.ClusterConfig, internal bool) (Cluster, error) {
	kindClusterName := config.KindClusterName(t.metadata.Name, clusterCfg.Name)
	kubeconfigPath := filepath.Join(topologyDir, fmt.Sprintf("%s.kubeconfig", clusterCfg.Name))

	fmt.Fprintf(deps.out(), "Creating kind cluster '%s'...\n", kindClusterName)
	kubeconfig, err := cluster.CreateKindCluster(ctx, deps.Kind, kindClusterName, clusterCfg.Kind.NodeImage, kubeconfigPath)
	if err != nil {
		return Cluster{}, err
	}

	c := Cluster{
		Name:            clusterCfg.Name,
		Secret:          config.SecretName(t.metadata.Name, clusterCfg),
		KindClusterName: kindClusterName,
		KubeconfigPath:  kubeconfigPath,
		CreatedAt:       time.Now(),
	}

	c.Endpoint, err = cluster.EndpointFromKubeconfig(kubeconfig)
	if err != nil {
		return c, err
	}

	secretData := kubeconfig
	if internal {
		internalKubeconfig, err := deps.Kind.KubeConfig(kindClusterName, true)
		if err != nil {
			return c, fmt.Errorf("failed to get internal kubeconfig: %w", err)
		}
		secretData = []byte(internalKubeconfig)
	}

	if err := deps.Store.PutKubeconfig(ctx, c.Secret, secretData, t.metadata.Name); err != nil {
		return c, err
	}

	fmt.Fprintf(deps.out(), "✓ Cluster '%s' created at %s\n", c.Name, c.Endpoint)
	return c, nil
}

// exportMultiKueue mirrors credential Secrets into the MultiKueue namespace
// and registers every cluster as a MultiKueue worker named "<topology>-<cluster>"
func (t *Topology) exportMultiKueue(ctx context.Context, deps *Deps, name string) error {
	if deps.MultiKueue == nil {
		return fmt.Errorf("multiKueue is enabled but no management cluster client is configured")
	}

	if mirrorsSecrets(deps) {
		if err := deps.MultiKueueStore.EnsureNamespace(ctx); err != nil {
			return err
		}
		for _, clusterName := range t.ClusterNames() {
			c := t.metadata.Clusters[clusterName]
			if err := deps.Store.CopyTo(ctx, c.Secret, deps.MultiKueueStore, t.metadata.Name); err != nil {
				return fmt.Errorf("failed to copy credentials of cluster '%s': %w", c.Name, err)
			}
		}
	}

	if err := kueue.SetupMultiKueue(ctx, deps.MultiKueue, name, multiKueueDescriptors(t.metadata.Name, t.metadata.Clusters)); err != nil {
		return fmt.Errorf("failed to set up MultiKueue: %w", err)
	}
	t.metadata.MultiKueue = name

	fmt.Fprintf(deps.out(), "✓ Registered %d cluster(s) with MultiKueue config '%s'\n", len(t.metadata.Clusters), name)
	return nil
}

// mirrorsSecrets reports whether credentials are copied into a separate MultiKueue namespace
func mirrorsSecrets(deps *Deps) bool {
	return deps.MultiKueueStore != nil && deps.MultiKueueStore.Namespace() != deps.Store.Namespace()
}

// multiKueueDescriptors keys descriptors by MultiKueueCluster name.
// MultiKueueClusters are cluster-scoped, so names carry the topology prefix.
func multiKueueDescriptors(topologyName string, clusters map[string]Cluster) map[string]cluster.Descriptor {
	descriptors := make(map[string]cluster.Descriptor, len(clusters))
	for name, c := range clusters {
		descriptors[config.KindClusterName(topologyName, name)] = c.Descriptor()
	}
	return descriptors
}

// teardownMultiKueue removes the MultiKueue objects and mirrored Secrets of a topology, logging failures
func teardownMultiKueue(ctx context.Context, deps *Deps, topologyName, name string, clusters map[string]Cluster) {
	log := deps.logger().With(zap.String("topology", topologyName), zap.String("multiKueue", name))

	if deps.MultiKueue == nil {
		log.Warn("no management cluster client configured, skipping MultiKueue cleanup")
	} else {
		descriptors := multiKueueDescriptors(topologyName, clusters)
		names := make([]string, 0, len(descriptors))
		for n := range descriptors {
			names = append(names, n)
		}
		sort.Strings(names)
		if err := deps.MultiKueue.DeleteMultiKueue(ctx, name, names); err != nil {
			log.Warn("failed to delete MultiKueue objects", zap.Error(err))
		}
	}

	if !mirrorsSecrets(deps) {
		return
	}
	for _, c := range clusters {
		if err := deps.MultiKueueStore.Delete(ctx, c.Secret, topologyName); err != nil {
			log.Warn("failed to delete mirrored credentials secret", zap.String("cluster", c.Name), zap.Error(err))
		}
	}
}

// teardownManaged deletes a managed cluster and its Secret, logging failures
func teardownManaged(ctx context.Context, deps *Deps, topologyName string, c Cluster) {
	log := deps.logger().With(zap.String("topology", topologyName), zap.String("cluster", c.Name))
	if err := cluster.DeleteKindCluster(deps.Kind, c.KindClusterName, c.KubeconfigPath); err != nil {
		log.Warn("failed to delete kind cluster", zap.Error(err))
	}
	if err := deps.Store.Delete(ctx, c.Secret, topologyName); err != nil {
		log.Warn("failed to delete credentials secret", zap.Error(err))
	}
}

// Load loads an existing topology from disk
func Load(name string) (*Topology, error) {
	topologyDir, err := getTopologyDir(name)
	if err != nil {
		return nil, err
	}

	metadataPath := filepath.Join(topologyDir, metadataFilename)
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &Topology{
		metadata: &metadata,
	}, nil
}

// List lists all topologies from disk
func List() ([]*Topology, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	topologiesDir := filepath.Join(home, metadataDir)
	entries, err := os.ReadDir(topologiesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Topology{}, nil
		}
		return nil, fmt.Errorf("failed to read topologies directory: %w", err)
	}

	var topologies []*Topology
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		topo, err := Load(entry.Name())
		if err != nil {
			// Skip entries that fail to load
			continue
		}

		topologies = append(topologies, topo)
	}

	// Sort by creation time (newest first)
	sort.Slice(topologies, func(i, j int) bool {
		return topologies[i].metadata.CreatedAt.After(topologies[j].metadata.CreatedAt)
	})

	return topologies, nil
}

// Delete removes the MultiKueue registration with its mirrored Secrets,
// managed clusters with their Secrets, and the topology metadata. External
// clusters and their Secrets in the central namespace are left untouched.
func (t *Topology) Delete(ctx context.Context, deps *Deps) error {
	if t.metadata.MultiKueue != "" {
		teardownMultiKueue(ctx, deps, t.metadata.Name, t.metadata.MultiKueue, t.metadata.Clusters)
	}

	// Best effort - continue on errors
	for _, c := range t.metadata.Clusters {
		if c.Managed() {
			teardownManaged(ctx, deps, t.metadata.Name, c)
		}
	}

	topologyDir, err := getTopologyDir(t.metadata.Name)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(topologyDir); err != nil {
		return fmt.Errorf("failed to remove topology directory: %w", err)
	}

	return nil
}

// GetMetadata returns the topology metadata
func (t *Topology) GetMetadata() *Metadata {
	return t.metadata
}

// Descriptors returns the descriptor of every cluster keyed by cluster name
func (t *Topology) Descriptors() map[string]cluster.Descriptor {
	descriptors := make(map[string]cluster.Descriptor, len(t.metadata.Clusters))
	for name, c := range t.metadata.Clusters {
		descriptors[name] = c.Descriptor()
	}
	return descriptors
}

// ClusterNames returns the cluster names in sorted order
func (t *Topology) ClusterNames() []string {
	names := make([]string, 0, len(t.metadata.Clusters))
	for name := range t.metadata.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// save saves topology metadata to disk
func (t *Topology) save() error {
	topologyDir, err := getTopologyDir(t.metadata.Name)
	if err != nil {
		return err
	}

	metadataPath := filepath.Join(topologyDir, metadataFilename)
	data, err := json.MarshalIndent(t.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// getTopologyDir returns the directory path for a topology
func getTopologyDir(name string) (string, error) {
	if err := config.ValidateTopologyName(name); err != nil {
		return "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, metadataDir, name), nil
}
