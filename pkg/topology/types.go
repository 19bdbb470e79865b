package topology

import (
	"time"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
)

// Metadata stores information about a created topology
type Metadata struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Namespace string    `json:"namespace"`
	// MultiKueue is the MultiKueueConfig/AdmissionCheck name, empty when not exported
	MultiKueue string             `json:"multiKueue,omitempty"`
	Clusters   map[string]Cluster `json:"clusters"`
}

// Cluster stores information about a cluster within a topology.
// Only the Secret name is persisted, never credential material.
type Cluster struct {
	Name            string    `json:"name"`
	Endpoint        string    `json:"endpoint"`
	Secret          string    `json:"secret"`
	KindClusterName string    `json:"kindClusterName,omitempty"`
	KubeconfigPath  string    `json:"kubeconfigPath,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Descriptor returns the cluster descriptor for this cluster
func (c Cluster) Descriptor() cluster.Descriptor {
	return cluster.NewDescriptor(c.Endpoint, c.Secret)
}

// Managed reports whether the cluster was provisioned by the topology
func (c Cluster) Managed() bool {
	return c.KindClusterName != ""
}
