package main

import (
	"fmt"
	"os"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	"github.com/jhwagner/stretch-bench/pkg/credentials"
	"github.com/jhwagner/stretch-bench/pkg/kueue"
	"github.com/jhwagner/stretch-bench/pkg/topology"
	"github.com/spf13/viper"
)

// newDeps wires the central cluster clients for a topology operation.
// The MultiKueue client is only built when needed since it requires the Kueue CRDs.
func newDeps(secretNamespace string, withMultiKueue bool) (*topology.Deps, error) {
	kubeconfigPath := viper.GetString("kubeconfig")

	store, err := credentials.NewStoreFromKubeconfig(kubeconfigPath, secretNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to central cluster: %w", err)
	}

	deps := &topology.Deps{
		Kind:   cluster.NewKindProvider(),
		Store:  store,
		Logger: logger,
		Out:    os.Stdout,
	}

	if withMultiKueue {
		deps.MultiKueue, err = kueue.NewClient(kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kueue client: %w", err)
		}
		deps.MultiKueueStore, err = credentials.NewStoreFromKubeconfig(kubeconfigPath, kueue.MultiKueueNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to central cluster: %w", err)
		}
	}

	return deps, nil
}
