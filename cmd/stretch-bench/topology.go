package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jhwagner/stretch-bench/pkg/config"
	"github.com/jhwagner/stretch-bench/pkg/topology"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Manage stretch topologies",
	Long:  `Create, delete, and list the sets of clusters a stretch deployment spans.`,
}

var topologyCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new topology",
	Long: `Create a new stretch topology from a configuration file.

The topology name can be specified either:
  - As a positional argument (overrides config)
  - In the metadata.name field of the config file

This will:
  1. Create kind cluster(s) for entries with a kind block
  2. Store their kubeconfig as Secrets on the central cluster
  3. Record external clusters by url and secret name
  4. Register all clusters with MultiKueue (if spec.multiKueue is set)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTopologyCreate,
}

var topologyDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a topology",
	Long: `Delete a stretch topology. Kind clusters created by the topology and
their Secrets are removed; external clusters are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runTopologyDelete,
}

var topologyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topologies",
	Long:  `List all created stretch topologies.`,
	RunE:  runTopologyList,
}

var (
	topologyFile string
)

func init() {
	rootCmd.AddCommand(topologyCmd)
	topologyCmd.AddCommand(topologyCreateCmd)
	topologyCmd.AddCommand(topologyDeleteCmd)
	topologyCmd.AddCommand(topologyListCmd)

	// Flags for create command
	topologyCreateCmd.Flags().StringVarP(&topologyFile, "file", "f", "", "path to topology configuration file (required)")
	_ = topologyCreateCmd.MarkFlagRequired("file")
}

func runTopologyCreate(cmd *cobra.Command, args []string) error {
	// Load and validate topology configuration
	cfg, err := config.LoadTopology(topologyFile)
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	// Determine name: CLI arg overrides config
	if len(args) > 0 {
		cfg.Metadata.Name = args[0]
	}
	name := cfg.Metadata.Name

	if name == "" {
		return fmt.Errorf("topology name must be specified via argument or metadata.name in topology configuration file")
	}

	fmt.Printf("Creating topology '%s' from file '%s'...\n", name, topologyFile)

	if err := config.ValidateTopology(cfg); err != nil {
		return fmt.Errorf("topology validation failed: %w", err)
	}

	fmt.Println("✓ Topology loaded and validated")

	deps, err := newDeps(config.CentralNamespace(cfg, viper.GetString("namespace")), cfg.Spec.MultiKueue != nil)
	if err != nil {
		return err
	}

	topo, err := topology.Create(cmd.Context(), deps, name, cfg)
	if err != nil {
		return fmt.Errorf("failed to create topology: %w", err)
	}

	fmt.Printf("✓ Topology '%s' created successfully\n\n", name)
	printClusters(os.Stdout, topo)
	return nil
}

func runTopologyDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	fmt.Printf("Deleting topology '%s'...\n", name)

	topo, err := topology.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	metadata := topo.GetMetadata()
	deps, err := newDeps(metadata.Namespace, metadata.MultiKueue != "")
	if err != nil {
		return err
	}

	if err := topo.Delete(cmd.Context(), deps); err != nil {
		return fmt.Errorf("failed to delete topology: %w", err)
	}

	fmt.Printf("✓ Topology '%s' deleted successfully\n", name)
	return nil
}

func runTopologyList(cmd *cobra.Command, args []string) error {
	topologies, err := topology.List()
	if err != nil {
		return fmt.Errorf("failed to list topologies: %w", err)
	}

	if len(topologies) == 0 {
		fmt.Println("No topologies found")
		return nil
	}

	// Use tabwriter for aligned output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCLUSTERS\tNAMESPACE\tMULTIKUEUE\tCREATED")
	fmt.Fprintln(w, "----\t--------\t---------\t----------\t-------")
	for _, topo := range topologies {
		metadata := topo.GetMetadata()
		multiKueue := metadata.MultiKueue
		if multiKueue == "" {
			multiKueue = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			metadata.Name,
			len(metadata.Clusters),
			metadata.Namespace,
			multiKueue,
			metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	return nil
}
