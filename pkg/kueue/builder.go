package kueue

import (
	"github.com/jhwagner/stretch-bench/pkg/cluster"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kueue "sigs.k8s.io/kueue/apis/kueue/v1beta1"
)

const (
	// EndpointAnnotation records the API endpoint of the worker cluster for humans;
	// MultiKueue itself only reads the kubeconfig Secret.
	EndpointAnnotation = "stretch-bench.io/endpoint"

	// ManagedByLabel marks every object registered by stretch-bench
	ManagedByLabel = "app.kubernetes.io/managed-by"
	managedBy      = "stretch-bench"
)

func objectMeta(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:   name,
		Labels: map[string]string{ManagedByLabel: managedBy},
	}
}

// BuildMultiKueueCluster builds a MultiKueueCluster whose kubeconfig is read
// from the Secret named by the descriptor's credential reference
func BuildMultiKueueCluster(name string, d cluster.Descriptor) *kueue.MultiKueueCluster {
	meta := objectMeta(name)
	meta.Annotations = map[string]string{EndpointAnnotation: d.Endpoint()}

	return &kueue.MultiKueueCluster{
		TypeMeta:   metav1.TypeMeta{APIVersion: kueue.SchemeGroupVersion.String(), Kind: "MultiKueueCluster"},
		ObjectMeta: meta,
		Spec: kueue.MultiKueueClusterSpec{
			KubeConfig: kueue.KubeConfig{
				Location:     d.CredentialRef(),
				LocationType: kueue.SecretLocationType,
			},
		},
	}
}

// BuildMultiKueueConfig builds a MultiKueueConfig listing the worker clusters by name
func BuildMultiKueueConfig(name string, clusterNames []string) *kueue.MultiKueueConfig {
	return &kueue.MultiKueueConfig{
		TypeMeta:   metav1.TypeMeta{APIVersion: kueue.SchemeGroupVersion.String(), Kind: "MultiKueueConfig"},
		ObjectMeta: objectMeta(name),
		Spec: kueue.MultiKueueConfigSpec{
			Clusters: clusterNames,
		},
	}
}

// BuildAdmissionCheck builds the AdmissionCheck that routes admitted
// workloads through the MultiKueueConfig configName
func BuildAdmissionCheck(name, configName string) *kueue.AdmissionCheck {
	return &kueue.AdmissionCheck{
		TypeMeta:   metav1.TypeMeta{APIVersion: kueue.SchemeGroupVersion.String(), Kind: "AdmissionCheck"},
		ObjectMeta: objectMeta(name),
		Spec: kueue.AdmissionCheckSpec{
			ControllerName: kueue.MultiKueueControllerName,
			Parameters: &kueue.AdmissionCheckParametersReference{
				APIGroup: kueue.SchemeGroupVersion.Group,
				Kind:     "MultiKueueConfig",
				Name:     configName,
			},
		},
	}
}
