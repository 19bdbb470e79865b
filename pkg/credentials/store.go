package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// KubeconfigKey is the Secret key holding a kubeconfig; MultiKueue reads the same key
	KubeconfigKey = "kubeconfig"
	// TokenKey and CAKey hold a bearer token and its cluster CA bundle
	TokenKey = "token"
	CAKey    = "ca.crt"

	// OwnerLabel names the topology owning a Secret. Secrets stored by
	// `cluster register` have no owner.
	OwnerLabel = "stretch-bench.io/topology"

	managedByLabel = "app.kubernetes.io/managed-by"
	managedByValue = "stretch-bench"
)

var (
	// ErrCredentialsNotFound means the referenced Secret does not exist
	ErrCredentialsNotFound = errors.New("credentials secret not found")
	// ErrNoCredentialMaterial means the Secret exists but holds no usable key
	ErrNoCredentialMaterial = errors.New("credentials secret has no kubeconfig or token")
	// ErrNotOwned means the Secret exists but was stored by someone else
	ErrNotOwned = errors.New("credentials secret is owned by someone else")
)

// Resolver turns a cluster descriptor into a client configuration
type Resolver interface {
	Resolve(ctx context.Context, d cluster.Descriptor) (*rest.Config, error)
}

// Store keeps cluster credentials as Secrets in a single namespace of the central cluster
type Store struct {
	client    kubernetes.Interface
	namespace string
}

// NewStore creates a Store backed by Secrets in namespace
func NewStore(client kubernetes.Interface, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
	}
}

// NewStoreFromKubeconfig creates a Store for the central cluster reached through kubeconfigPath.
// An empty path falls back to the default loading rules.
func NewStoreFromKubeconfig(kubeconfigPath, namespace string) (*Store, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = kubeconfigPath
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return NewStore(clientset, namespace), nil
}

// Namespace returns the namespace holding the Secrets
func (s *Store) Namespace() string {
	return s.namespace
}

// EnsureNamespace creates the store namespace if it doesn't exist
func (s *Store) EnsureNamespace(ctx context.Context) error {
	_, err := s.client.CoreV1().Namespaces().Get(ctx, s.namespace, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to get namespace %s: %w", s.namespace, err)
	}

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: s.namespace,
		},
	}
	_, err = s.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", s.namespace, err)
	}
	return nil
}

// PutKubeconfig creates or updates the Secret name holding kubeconfig.
// An existing Secret is only updated when it was stored by stretch-bench for
// the same owner; otherwise ErrNotOwned is returned and the Secret is left as is.
func (s *Store) PutKubeconfig(ctx context.Context, name string, kubeconfig []byte, owner string) error {
	labels := map[string]string{
		managedByLabel: managedByValue,
	}
	if owner != "" {
		labels[OwnerLabel] = owner
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: s.namespace,
			Labels:    labels,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			KubeconfigKey: kubeconfig,
		},
	}

	secrets := s.client.CoreV1().Secrets(s.namespace)
	_, err := secrets.Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := secrets.Get(ctx, name, metav1.GetOptions{})
		if getErr != nil {
			return fmt.Errorf("failed to get Secret %s/%s: %w", s.namespace, name, getErr)
		}
		if err := checkOwner(existing, owner); err != nil {
			return err
		}
		secret.ResourceVersion = existing.ResourceVersion
		_, err = secrets.Update(ctx, secret, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to create or update Secret %s/%s: %w", s.namespace, name, err)
	}
	return nil
}

// Delete removes the Secret name if it belongs to owner. A missing Secret is
// not an error; a Secret of another owner yields ErrNotOwned.
func (s *Store) Delete(ctx context.Context, name, owner string) error {
	secrets := s.client.CoreV1().Secrets(s.namespace)
	existing, err := secrets.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get Secret %s/%s: %w", s.namespace, name, err)
	}
	if err := checkOwner(existing, owner); err != nil {
		return err
	}

	err = secrets.Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete Secret %s/%s: %w", s.namespace, name, err)
	}
	return nil
}

// Resolve looks up the Secret named by d.CredentialRef() and builds a client
// configuration for d.Endpoint() from it.
//
// A "kubeconfig" key wins; its server address is replaced by the descriptor
// endpoint when that is set. Otherwise a "token" key (with optional "ca.crt")
// is used against the endpoint.
func (s *Store) Resolve(ctx context.Context, d cluster.Descriptor) (*rest.Config, error) {
	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, d.CredentialRef(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrCredentialsNotFound, s.namespace, d.CredentialRef())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get Secret %s/%s: %w", s.namespace, d.CredentialRef(), err)
	}

	return configFromSecret(secret, d.Endpoint())
}

func configFromSecret(secret *corev1.Secret, endpoint string) (*rest.Config, error) {
	if kubeconfig, ok := secret.Data[KubeconfigKey]; ok && len(kubeconfig) > 0 {
		config, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from Secret %s/%s: %w", secret.Namespace, secret.Name, err)
		}
		if endpoint != "" {
			config.Host = endpoint
		}
		return config, nil
	}

	if token, ok := secret.Data[TokenKey]; ok && len(token) > 0 {
		if endpoint == "" {
			return nil, fmt.Errorf("secret %s/%s holds a token but the cluster has no endpoint", secret.Namespace, secret.Name)
		}
		config := &rest.Config{
			Host:        endpoint,
			BearerToken: string(token),
		}
		if ca, ok := secret.Data[CAKey]; ok {
			config.TLSClientConfig.CAData = ca
		}
		return config, nil
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrNoCredentialMaterial, secret.Namespace, secret.Name)
}

// CopyTo mirrors the Secret name into dst, keeping its data. The copy belongs
// to owner. Used to hand credentials to consumers that read from a fixed namespace.
func (s *Store) CopyTo(ctx context.Context, name string, dst *Store, owner string) error {
	src, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%w: %s/%s", ErrCredentialsNotFound, s.namespace, name)
	}
	if err != nil {
		return fmt.Errorf("failed to get Secret %s/%s: %w", s.namespace, name, err)
	}

	kubeconfig, ok := src.Data[KubeconfigKey]
	if !ok || len(kubeconfig) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNoCredentialMaterial, s.namespace, name)
	}

	return dst.PutKubeconfig(ctx, name, kubeconfig, owner)
}

func checkOwner(secret *corev1.Secret, owner string) error {
	if secret.Labels[managedByLabel] != managedByValue {
		return fmt.Errorf("%w: %s/%s was not stored by stretch-bench", ErrNotOwned, secret.Namespace, secret.Name)
	}
	if got := secret.Labels[OwnerLabel]; got != owner {
		if got == "" {
			got = "registered cluster"
		} else {
			got = "topology " + got
		}
		return fmt.Errorf("%w: %s/%s belongs to %s", ErrNotOwned, secret.Namespace, secret.Name, got)
	}
	return nil
}
