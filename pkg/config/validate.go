package config

import (
	"fmt"
	"net/url"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	APIVersion   = "stretch-bench.io/v1alpha1"
	KindTopology = "Topology"

	// DefaultCentralNamespace holds credential Secrets when spec.central.namespace is unset
	DefaultCentralNamespace = "stretch-system"
)

// ValidateTopology validates a topology configuration
func ValidateTopology(t *Topology) error {
	if t.APIVersion != APIVersion {
		return fmt.Errorf("unsupported apiVersion: %s (expected %s)", t.APIVersion, APIVersion)
	}

	if t.Kind != KindTopology {
		return fmt.Errorf("unsupported kind: %s (expected %s)", t.Kind, KindTopology)
	}

	if t.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if err := ValidateTopologyName(t.Metadata.Name); err != nil {
		return fmt.Errorf("metadata.name: %w", err)
	}

	if t.Spec.Central != nil && t.Spec.Central.Namespace != "" {
		if errs := validation.IsDNS1123Label(t.Spec.Central.Namespace); len(errs) > 0 {
			return fmt.Errorf("spec.central.namespace: invalid namespace '%s': %s",
				t.Spec.Central.Namespace, strings.Join(errs, "; "))
		}
	}

	if len(t.Spec.Clusters) == 0 {
		return fmt.Errorf("at least one cluster is required")
	}

	clusterNames := make(map[string]bool, len(t.Spec.Clusters))
	secretNames := make(map[string]string, len(t.Spec.Clusters))
	for i, c := range t.Spec.Clusters {
		if err := validateCluster(&c, i); err != nil {
			return err
		}
		if clusterNames[c.Name] {
			return fmt.Errorf("cluster[%d]: duplicate cluster name '%s'", i, c.Name)
		}
		clusterNames[c.Name] = true

		secret := SecretName(t.Metadata.Name, c)
		if owner, ok := secretNames[secret]; ok {
			return fmt.Errorf("cluster[%d] (%s): secret '%s' is already used by cluster '%s'",
				i, c.Name, secret, owner)
		}
		secretNames[secret] = c.Name
	}

	if t.Spec.MultiKueue != nil && t.Spec.MultiKueue.Name == "" {
		return fmt.Errorf("spec.multiKueue.name is required when multiKueue is set")
	}

	return nil
}

// ValidateTopologyName checks that name is a DNS-1123 label. The name is used
// as a directory name and as the prefix of kind cluster and Secret names.
func ValidateTopologyName(name string) error {
	if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid topology name '%s': %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateCluster validates a single cluster entry, e.g. one registered from the CLI
func ValidateCluster(c ClusterConfig) error {
	if c.Name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if err := validateClusterContents(&c); err != nil {
		return fmt.Errorf("cluster %s: %w", c.Name, err)
	}
	return nil
}

func validateCluster(c *ClusterConfig, index int) error {
	if c.Name == "" {
		return fmt.Errorf("cluster[%d]: name is required", index)
	}

	if err := validateClusterContents(c); err != nil {
		return fmt.Errorf("cluster[%d] (%s): %w", index, c.Name, err)
	}

	return nil
}

// validateClusterContents validates name format, endpoint and secret.
// Callers wrap the returned error with appropriate context.
func validateClusterContents(c *ClusterConfig) error {
	if errs := validation.IsDNS1123Label(c.Name); len(errs) > 0 {
		return fmt.Errorf("invalid name: %s", strings.Join(errs, "; "))
	}

	if c.Kind != nil {
		if c.URL != "" {
			return fmt.Errorf("url must not be set for kind clusters")
		}
		if c.Secret != "" {
			return validateSecretName(c.Secret)
		}
		return nil
	}

	if c.URL == "" {
		return fmt.Errorf("url is required (or set kind to provision the cluster locally)")
	}
	if err := validateEndpoint(c.URL); err != nil {
		return err
	}

	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return validateSecretName(c.Secret)
}

func validateSecretName(name string) error {
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return fmt.Errorf("invalid secret name '%s': %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// validateEndpoint checks that the endpoint is an absolute http(s) URL
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", endpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid url '%s': scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url '%s': host is required", endpoint)
	}
	return nil
}
