package config

import (
	"testing"
)

func validTopology() *Topology {
	return &Topology{
		APIVersion: "stretch-bench.io/v1alpha1",
		Kind:       "Topology",
		Metadata:   Metadata{Name: "test"},
		Spec: TopologySpec{
			Clusters: []ClusterConfig{
				{
					Name:   "east",
					URL:    "https://east.example.com:6443",
					Secret: "east-kubeconfig",
				},
				{
					Name: "west",
					Kind: &KindSettings{},
				},
			},
		},
	}
}

func TestValidateTopology(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Topology)
		wantErr bool
	}{
		{
			name:    "valid mixed topology",
			mutate:  func(*Topology) {},
			wantErr: false,
		},
		{
			name:    "invalid API version",
			mutate:  func(t *Topology) { t.APIVersion = "v1" },
			wantErr: true,
		},
		{
			name:    "invalid kind",
			mutate:  func(t *Topology) { t.Kind = "Cluster" },
			wantErr: true,
		},
		{
			name:    "missing name",
			mutate:  func(t *Topology) { t.Metadata.Name = "" },
			wantErr: true,
		},
		{
			name:    "no clusters",
			mutate:  func(t *Topology) { t.Spec.Clusters = nil },
			wantErr: true,
		},
		{
			name: "duplicate cluster name",
			mutate: func(t *Topology) {
				t.Spec.Clusters[1] = ClusterConfig{Name: "east", URL: "https://other:6443", Secret: "other"}
			},
			wantErr: true,
		},
		{
			name:    "external cluster without url",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].URL = "" },
			wantErr: true,
		},
		{
			name:    "external cluster without secret",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].Secret = "" },
			wantErr: true,
		},
		{
			name:    "relative url",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].URL = "east.example.com" },
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].URL = "ftp://east.example.com" },
			wantErr: true,
		},
		{
			name:    "invalid secret name",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].Secret = "East_Kubeconfig" },
			wantErr: true,
		},
		{
			name:    "kind cluster with url",
			mutate:  func(t *Topology) { t.Spec.Clusters[1].URL = "https://west:6443" },
			wantErr: true,
		},
		{
			name:    "kind cluster with explicit secret",
			mutate:  func(t *Topology) { t.Spec.Clusters[1].Secret = "west-creds" },
			wantErr: false,
		},
		{
			name: "secret shared between clusters",
			mutate: func(t *Topology) {
				t.Spec.Clusters[1].Secret = "east-kubeconfig"
			},
			wantErr: true,
		},
		{
			name: "derived secret collides with explicit one",
			mutate: func(t *Topology) {
				t.Spec.Clusters[0].Secret = "test-west-kubeconfig"
			},
			wantErr: true,
		},
		{
			name: "unprefixed secret does not collide with derived one",
			mutate: func(t *Topology) {
				t.Spec.Clusters[0].Secret = "west-kubeconfig"
			},
			wantErr: false,
		},
		{
			name:    "parent directory as name",
			mutate:  func(t *Topology) { t.Metadata.Name = ".." },
			wantErr: true,
		},
		{
			name:    "path separator in name",
			mutate:  func(t *Topology) { t.Metadata.Name = "demo/../../etc" },
			wantErr: true,
		},
		{
			name:    "uppercase name",
			mutate:  func(t *Topology) { t.Metadata.Name = "Demo" },
			wantErr: true,
		},
		{
			name:    "invalid cluster name",
			mutate:  func(t *Topology) { t.Spec.Clusters[0].Name = "East" },
			wantErr: true,
		},
		{
			name: "invalid central namespace",
			mutate: func(t *Topology) {
				t.Spec.Central = &CentralSettings{Namespace: "Not_Valid"}
			},
			wantErr: true,
		},
		{
			name:    "multiKueue without name",
			mutate:  func(t *Topology) { t.Spec.MultiKueue = &MultiKueueSettings{} },
			wantErr: true,
		},
		{
			name:    "multiKueue with name",
			mutate:  func(t *Topology) { t.Spec.MultiKueue = &MultiKueueSettings{Name: "stretch"} },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := validTopology()
			tt.mutate(topo)
			err := ValidateTopology(topo)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTopology() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCluster(t *testing.T) {
	tests := []struct {
		name    string
		cluster ClusterConfig
		wantErr bool
	}{
		{
			name:    "external cluster",
			cluster: ClusterConfig{Name: "east", URL: "https://east:6443", Secret: "east-kubeconfig"},
		},
		{
			name:    "missing name",
			cluster: ClusterConfig{URL: "https://east:6443", Secret: "east-kubeconfig"},
			wantErr: true,
		},
		{
			name:    "missing secret",
			cluster: ClusterConfig{Name: "east", URL: "https://east:6443"},
			wantErr: true,
		},
		{
			name:    "url without host",
			cluster: ClusterConfig{Name: "east", URL: "https://", Secret: "east-kubeconfig"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCluster(tt.cluster)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCluster() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
