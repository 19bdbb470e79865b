package config

import (
	"time"
)

// Topology represents a set of clusters that a stretch deployment spans
type Topology struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   Metadata     `yaml:"metadata"`
	Spec       TopologySpec `yaml:"spec"`
}

// Metadata contains topology metadata
type Metadata struct {
	Name        string            `yaml:"name"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// TopologySpec defines the desired topology configuration
type TopologySpec struct {
	Central    *CentralSettings    `yaml:"central,omitempty"`
	Clusters   []ClusterConfig     `yaml:"clusters"`
	MultiKueue *MultiKueueSettings `yaml:"multiKueue,omitempty"`
}

// CentralSettings describes where credential Secrets are kept on the central cluster
type CentralSettings struct {
	Namespace string `yaml:"namespace,omitempty"`
}

// ClusterConfig defines a single member cluster.
// External clusters set URL and Secret; managed clusters set Kind and
// have both derived when they are created.
type ClusterConfig struct {
	Name   string        `yaml:"name"`
	URL    string        `yaml:"url,omitempty"`
	Secret string        `yaml:"secret,omitempty"`
	Kind   *KindSettings `yaml:"kind,omitempty"`
}

// KindSettings configures a locally provisioned kind cluster
type KindSettings struct {
	NodeImage string `yaml:"nodeImage,omitempty"`
}

// MultiKueueSettings enables exporting member clusters to Kueue's MultiKueue
type MultiKueueSettings struct {
	// Name is used for both the MultiKueueConfig and the AdmissionCheck
	Name string `yaml:"name"`
}

// ProbeSettings controls connectivity probes (probe.* in the CLI config file)
type ProbeSettings struct {
	Concurrency int
	Timeout     time.Duration
}
