package kueue

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/clientcmd"
	kueue "sigs.k8s.io/kueue/apis/kueue/v1beta1"
	kueueclientset "sigs.k8s.io/kueue/client-go/clientset/versioned"
)

// Client wraps the Kueue clientset for MultiKueue object operations
type Client struct {
	kueueClient kueueclientset.Interface
}

// NewClient creates a new Kueue client from a kubeconfig path
func NewClient(kubeconfigPath string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = kubeconfigPath
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	kueueClient, err := kueueclientset.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kueue clientset: %w", err)
	}

	return NewClientFromInterface(kueueClient), nil
}

// NewClientFromInterface wraps an existing Kueue clientset
func NewClientFromInterface(kueueClient kueueclientset.Interface) *Client {
	return &Client{kueueClient: kueueClient}
}

// CreateMultiKueueCluster creates or updates a MultiKueueCluster
func (c *Client) CreateMultiKueueCluster(ctx context.Context, mkc *kueue.MultiKueueCluster) error {
	clusters := c.kueueClient.KueueV1beta1().MultiKueueClusters()
	_, err := clusters.Create(ctx, mkc, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := clusters.Get(ctx, mkc.Name, metav1.GetOptions{})
		if getErr != nil {
			return fmt.Errorf("failed to get MultiKueueCluster %s: %w", mkc.Name, getErr)
		}
		mkc.ResourceVersion = existing.ResourceVersion
		_, err = clusters.Update(ctx, mkc, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to create or update MultiKueueCluster %s: %w", mkc.Name, err)
	}
	return nil
}

// CreateMultiKueueConfig creates or updates a MultiKueueConfig
func (c *Client) CreateMultiKueueConfig(ctx context.Context, cfg *kueue.MultiKueueConfig) error {
	configs := c.kueueClient.KueueV1beta1().MultiKueueConfigs()
	_, err := configs.Create(ctx, cfg, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := configs.Get(ctx, cfg.Name, metav1.GetOptions{})
		if getErr != nil {
			return fmt.Errorf("failed to get MultiKueueConfig %s: %w", cfg.Name, getErr)
		}
		cfg.ResourceVersion = existing.ResourceVersion
		_, err = configs.Update(ctx, cfg, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to create or update MultiKueueConfig %s: %w", cfg.Name, err)
	}
	return nil
}

// CreateAdmissionCheck creates or updates an AdmissionCheck
func (c *Client) CreateAdmissionCheck(ctx context.Context, ac *kueue.AdmissionCheck) error {
	checks := c.kueueClient.KueueV1beta1().AdmissionChecks()
	_, err := checks.Create(ctx, ac, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := checks.Get(ctx, ac.Name, metav1.GetOptions{})
		if getErr != nil {
			return fmt.Errorf("failed to get AdmissionCheck %s: %w", ac.Name, getErr)
		}
		ac.ResourceVersion = existing.ResourceVersion
		_, err = checks.Update(ctx, ac, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to create or update AdmissionCheck %s: %w", ac.Name, err)
	}
	return nil
}

// DeleteMultiKueue removes the AdmissionCheck, MultiKueueConfig and MultiKueueClusters
// created by SetupMultiKueue. Missing objects are ignored.
func (c *Client) DeleteMultiKueue(ctx context.Context, name string, clusterNames []string) error {
	v1beta1 := c.kueueClient.KueueV1beta1()

	if err := v1beta1.AdmissionChecks().Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete AdmissionCheck %s: %w", name, err)
	}
	if err := v1beta1.MultiKueueConfigs().Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete MultiKueueConfig %s: %w", name, err)
	}
	for _, clusterName := range clusterNames {
		if err := v1beta1.MultiKueueClusters().Delete(ctx, clusterName, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete MultiKueueCluster %s: %w", clusterName, err)
		}
	}
	return nil
}
