package kueue

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
)

const (
	// MultiKueueNamespace is the namespace MultiKueue reads kubeconfig Secrets from
	MultiKueueNamespace = "kueue-system"
)

// SetupMultiKueue registers every cluster as a MultiKueue worker on the management cluster.
// It creates:
// - One MultiKueueCluster per descriptor, pointing at the descriptor's credential Secret
// - A MultiKueueConfig named name, listing all clusters
// - An AdmissionCheck named name, referencing the MultiKueueConfig
//
// The credential Secrets must already exist in MultiKueueNamespace.
func SetupMultiKueue(ctx context.Context, client *Client, name string, descriptors map[string]cluster.Descriptor) error {
	if len(descriptors) == 0 {
		return fmt.Errorf("no clusters to register with MultiKueue config %q", name)
	}

	clusterNames := make([]string, 0, len(descriptors))
	for clusterName := range descriptors {
		clusterNames = append(clusterNames, clusterName)
	}
	sort.Strings(clusterNames)

	for _, clusterName := range clusterNames {
		mkc := BuildMultiKueueCluster(clusterName, descriptors[clusterName])
		if err := client.CreateMultiKueueCluster(ctx, mkc); err != nil {
			return fmt.Errorf("failed to create MultiKueueCluster for cluster %q: %w", clusterName, err)
		}
	}

	if err := client.CreateMultiKueueConfig(ctx, BuildMultiKueueConfig(name, clusterNames)); err != nil {
		return fmt.Errorf("failed to create MultiKueueConfig %q: %w", name, err)
	}

	if err := client.CreateAdmissionCheck(ctx, BuildAdmissionCheck(name, name)); err != nil {
		return fmt.Errorf("failed to create AdmissionCheck %q: %w", name, err)
	}

	return nil
}
