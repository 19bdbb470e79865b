package config

import (
	"fmt"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
)

// SecretName returns the credential Secret name for a cluster of the named topology.
// Kind clusters without an explicit secret get "<topology>-<name>-kubeconfig",
// so topologies sharing a central namespace never write the same Secret.
func SecretName(topologyName string, c ClusterConfig) string {
	if c.Secret != "" {
		return c.Secret
	}
	return DefaultSecretName(KindClusterName(topologyName, c.Name))
}

// DefaultSecretName returns "<name>-kubeconfig"
func DefaultSecretName(name string) string {
	return fmt.Sprintf("%s-kubeconfig", name)
}

// KindClusterName returns the kind cluster name of a managed cluster
func KindClusterName(topologyName, clusterName string) string {
	return fmt.Sprintf("%s-%s", topologyName, clusterName)
}

// IsManaged reports whether the cluster is provisioned locally with kind
func (c ClusterConfig) IsManaged() bool {
	return c.Kind != nil
}

// Descriptor returns the descriptor of an external cluster.
// Managed clusters only learn their endpoint once created.
func (c ClusterConfig) Descriptor() cluster.Descriptor {
	return cluster.NewDescriptor(c.URL, c.Secret)
}

// Descriptors returns the descriptors of all external clusters keyed by cluster name
func Descriptors(t *Topology) map[string]cluster.Descriptor {
	descriptors := make(map[string]cluster.Descriptor, len(t.Spec.Clusters))
	for _, c := range t.Spec.Clusters {
		if c.IsManaged() {
			continue
		}
		descriptors[c.Name] = c.Descriptor()
	}
	return descriptors
}

// CentralNamespace returns the namespace holding credential Secrets.
// The topology setting wins over fallback, which wins over DefaultCentralNamespace.
func CentralNamespace(t *Topology, fallback string) string {
	if t.Spec.Central != nil && t.Spec.Central.Namespace != "" {
		return t.Spec.Central.Namespace
	}
	if fallback != "" {
		return fallback
	}
	return DefaultCentralNamespace
}
