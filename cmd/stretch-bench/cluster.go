package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/jhwagner/stretch-bench/pkg/clients"
	"github.com/jhwagner/stretch-bench/pkg/cluster"
	"github.com/jhwagner/stretch-bench/pkg/config"
	"github.com/jhwagner/stretch-bench/pkg/credentials"
	"github.com/jhwagner/stretch-bench/pkg/manifest"
	"github.com/jhwagner/stretch-bench/pkg/topology"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Inspect and register member clusters",
}

var clusterListCmd = &cobra.Command{
	Use:   "list [topology]",
	Short: "List the clusters of a topology",
	Args:  cobra.ExactArgs(1),
	RunE:  runClusterList,
}

var clusterProbeCmd = &cobra.Command{
	Use:   "probe [topology]",
	Short: "Check that every cluster of a topology is reachable",
	Long: `Resolve the credentials of every cluster in a topology from the central
cluster and query each API server for its version.

Clusters are probed concurrently; the command fails if any cluster is unreachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runClusterProbe,
}

var clusterRegisterCmd = &cobra.Command{
	Use:   "register [name]",
	Short: "Store the credentials of an existing cluster",
	Long: `Store a kubeconfig as a Secret on the central cluster and print the
resulting cluster descriptor, ready to be used as an external cluster in a
topology file.

The endpoint defaults to the server of the kubeconfig's current context.`,
	Args: cobra.ExactArgs(1),
	RunE: runClusterRegister,
}

var clusterApplyCmd = &cobra.Command{
	Use:   "apply [topology]",
	Short: "Apply a manifest to the clusters of a topology",
	Long: `Resolve the credentials of each cluster in a topology from the central
cluster and apply a manifest (local file or http(s) URL) to it.

Objects are created or updated. The command stops at the first cluster that fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runClusterApply,
}

var (
	applyFile    string
	applyCluster string
)

var (
	registerURL            string
	registerSecret         string
	registerKubeconfigFile string
)

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.AddCommand(clusterListCmd)
	clusterCmd.AddCommand(clusterProbeCmd)
	clusterCmd.AddCommand(clusterRegisterCmd)
	clusterCmd.AddCommand(clusterApplyCmd)

	clusterProbeCmd.Flags().Int("concurrency", 0, "maximum number of clusters probed at once")
	clusterProbeCmd.Flags().Duration("timeout", 0, "timeout for the whole probe run")
	_ = viper.BindPFlag("probe.concurrency", clusterProbeCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("probe.timeout", clusterProbeCmd.Flags().Lookup("timeout"))

	clusterRegisterCmd.Flags().StringVar(&registerURL, "url", "", "API endpoint of the cluster")
	clusterRegisterCmd.Flags().StringVar(&registerSecret, "secret", "", "Secret name (default is <name>-kubeconfig)")
	clusterRegisterCmd.Flags().StringVarP(&registerKubeconfigFile, "file", "f", "", "kubeconfig of the cluster (required)")
	_ = clusterRegisterCmd.MarkFlagRequired("file")

	clusterApplyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "manifest path or URL (required)")
	clusterApplyCmd.Flags().StringVar(&applyCluster, "cluster", "", "apply to this cluster only")
	_ = clusterApplyCmd.MarkFlagRequired("file")
}

func runClusterList(cmd *cobra.Command, args []string) error {
	topo, err := topology.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	printClusters(os.Stdout, topo)
	return nil
}

func runClusterProbe(cmd *cobra.Command, args []string) error {
	topo, err := topology.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	settings := probeSettings()

	store, err := credentials.NewStoreFromKubeconfig(viper.GetString("kubeconfig"), topo.GetMetadata().Namespace)
	if err != nil {
		return fmt.Errorf("failed to connect to central cluster: %w", err)
	}

	ctx := cmd.Context()
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	logger.Debug("probing clusters",
		zap.String("topology", args[0]),
		zap.Int("concurrency", settings.Concurrency),
		zap.Duration("timeout", settings.Timeout))

	provider := clients.NewProvider(store, clients.WithLogger(logger))
	results := provider.ProbeAll(ctx, topo.Descriptors(), settings.Concurrency)

	if failed := printProbeResults(os.Stdout, results); failed > 0 {
		return fmt.Errorf("%d of %d cluster(s) unreachable", failed, len(results))
	}

	fmt.Printf("✓ All %d cluster(s) reachable\n", len(results))
	return nil
}

func runClusterRegister(cmd *cobra.Command, args []string) error {
	name := args[0]

	kubeconfigData, err := os.ReadFile(registerKubeconfigFile) //nolint:gosec // path is user-provided CLI input
	if err != nil {
		return fmt.Errorf("failed to read kubeconfig: %w", err)
	}

	endpoint := registerURL
	if endpoint == "" {
		endpoint, err = cluster.EndpointFromKubeconfig(kubeconfigData)
		if err != nil {
			return err
		}
	}

	clusterCfg := config.ClusterConfig{Name: name, URL: endpoint, Secret: registerSecret}
	if clusterCfg.Secret == "" {
		clusterCfg.Secret = config.DefaultSecretName(name)
	}
	if err := config.ValidateCluster(clusterCfg); err != nil {
		return err
	}

	ns := viper.GetString("namespace")
	if ns == "" {
		ns = config.DefaultCentralNamespace
	}
	store, err := credentials.NewStoreFromKubeconfig(viper.GetString("kubeconfig"), ns)
	if err != nil {
		return fmt.Errorf("failed to connect to central cluster: %w", err)
	}

	if err := store.EnsureNamespace(cmd.Context()); err != nil {
		return err
	}
	if err := store.PutKubeconfig(cmd.Context(), clusterCfg.Secret, kubeconfigData, ""); err != nil {
		return err
	}

	d := clusterCfg.Descriptor()
	fmt.Printf("✓ Cluster '%s' registered: %s\n", name, d)
	fmt.Printf("\n  - name: %s\n    url: %s\n    secret: %s\n", name, d.Endpoint(), d.CredentialRef())
	return nil
}

func runClusterApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	topo, err := topology.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	targets, err := selectClusters(topo.Descriptors(), applyCluster)
	if err != nil {
		return err
	}

	data, err := manifest.Read(ctx, applyFile)
	if err != nil {
		return err
	}

	store, err := credentials.NewStoreFromKubeconfig(viper.GetString("kubeconfig"), topo.GetMetadata().Namespace)
	if err != nil {
		return fmt.Errorf("failed to connect to central cluster: %w", err)
	}

	for _, name := range sortedNames(targets) {
		d := targets[name]
		logger.Debug("applying manifest", zap.String("cluster", name), zap.Stringer("descriptor", d))

		restConfig, err := store.Resolve(ctx, d)
		if err != nil {
			return fmt.Errorf("cluster %s: %w", name, err)
		}
		applier, err := manifest.NewApplierForConfig(restConfig)
		if err != nil {
			return fmt.Errorf("cluster %s: %w", name, err)
		}
		if err := applier.ApplyBytes(ctx, data); err != nil {
			return fmt.Errorf("cluster %s: %w", name, err)
		}
		fmt.Printf("✓ Applied %s to cluster '%s'\n", applyFile, name)
	}

	return nil
}

// selectClusters narrows descriptors to a single cluster when only is set
func selectClusters(descriptors map[string]cluster.Descriptor, only string) (map[string]cluster.Descriptor, error) {
	if only == "" {
		return descriptors, nil
	}
	d, ok := descriptors[only]
	if !ok {
		return nil, fmt.Errorf("cluster %q not found in topology", only)
	}
	return map[string]cluster.Descriptor{only: d}, nil
}

func sortedNames(descriptors map[string]cluster.Descriptor) []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// printClusters writes a NAME/ENDPOINT/SECRET table of a topology's clusters
func printClusters(out io.Writer, topo *topology.Topology) {
	metadata := topo.GetMetadata()

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tENDPOINT\tSECRET\tMANAGED")
	fmt.Fprintln(w, "----\t--------\t------\t-------")
	for _, name := range topo.ClusterNames() {
		c := metadata.Clusters[name]
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%t\n", c.Name, c.Endpoint, metadata.Namespace, c.Secret, c.Managed())
	}
	w.Flush()
}

// printProbeResults writes one line per probed cluster and returns the number of failures
func printProbeResults(out io.Writer, results []clients.ProbeResult) int {
	failed := 0

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tENDPOINT\tVERSION\tSTATUS")
	fmt.Fprintln(w, "----\t--------\t-------\t------")
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t%s\t-\t%v\n", r.Name, r.Descriptor.Endpoint(), r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tok\n", r.Name, r.Descriptor.Endpoint(), r.Version.GitVersion)
	}
	w.Flush()

	return failed
}
