package kueue

import (
	"testing"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	kueue "sigs.k8s.io/kueue/apis/kueue/v1beta1"
)

func TestBuildMultiKueueCluster(t *testing.T) {
	d := cluster.NewDescriptor("https://east.example.com:6443", "east-kubeconfig")
	mkc := BuildMultiKueueCluster("east", d)

	if mkc.Name != "east" {
		t.Errorf("expected name 'east', got '%s'", mkc.Name)
	}
	if mkc.Spec.KubeConfig.Location != "east-kubeconfig" {
		t.Errorf("expected location 'east-kubeconfig', got '%s'", mkc.Spec.KubeConfig.Location)
	}
	if mkc.Spec.KubeConfig.LocationType != kueue.SecretLocationType {
		t.Errorf("expected location type Secret, got '%s'", mkc.Spec.KubeConfig.LocationType)
	}
	if got := mkc.Annotations[EndpointAnnotation]; got != "https://east.example.com:6443" {
		t.Errorf("expected endpoint annotation, got '%s'", got)
	}
	if mkc.Labels[ManagedByLabel] != "stretch-bench" {
		t.Errorf("expected managed-by label, got %v", mkc.Labels)
	}
	if mkc.Kind != "MultiKueueCluster" {
		t.Errorf("expected kind MultiKueueCluster, got '%s'", mkc.Kind)
	}
}

func TestBuildMultiKueueConfig(t *testing.T) {
	cfg := BuildMultiKueueConfig("stretch", []string{"east", "west"})

	if cfg.Name != "stretch" {
		t.Errorf("expected name 'stretch', got '%s'", cfg.Name)
	}
	if len(cfg.Spec.Clusters) != 2 || cfg.Spec.Clusters[0] != "east" || cfg.Spec.Clusters[1] != "west" {
		t.Errorf("expected clusters [east west], got %v", cfg.Spec.Clusters)
	}
}

func TestBuildAdmissionCheck(t *testing.T) {
	ac := BuildAdmissionCheck("stretch", "stretch-config")

	if ac.Spec.ControllerName != kueue.MultiKueueControllerName {
		t.Errorf("expected controller %s, got %s", kueue.MultiKueueControllerName, ac.Spec.ControllerName)
	}
	if ac.Spec.Parameters == nil {
		t.Fatal("expected parameters to be set")
	}
	if ac.Spec.Parameters.Kind != "MultiKueueConfig" || ac.Spec.Parameters.Name != "stretch-config" {
		t.Errorf("unexpected parameters %+v", ac.Spec.Parameters)
	}
	if ac.Spec.Parameters.APIGroup != kueue.SchemeGroupVersion.Group {
		t.Errorf("expected API group %s, got %s", kueue.SchemeGroupVersion.Group, ac.Spec.Parameters.APIGroup)
	}
}
