package k8sclient

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/k3zner/internal/config"
)

// Client is the subset of the cluster API k3zner needs.
type Client interface {
	// WaitForNodes blocks until every named node is registered or the
	// timeout expires.
	WaitForNodes(ctx context.Context, names []string, timeout time.Duration) error

	// LabelNodes merges labels into every named node.
	LabelNodes(ctx context.Context, names []string, labels []config.Label) error

	// TaintNodes adds or replaces taints on every named node. Taint values
	// carry the effect, e.g. "true:NoSchedule".
	TaintNodes(ctx context.Context, names []string, taints []config.Label) error

	// EnsureSecret creates the secret or replaces the data of an existing one.
	EnsureSecret(ctx context.Context, secret *corev1.Secret) error

	// ApplyPlan creates a system-upgrade Plan or updates the existing one.
	ApplyPlan(ctx context.Context, plan *unstructured.Unstructured) error
}

type client struct {
	clientset    kubernetes.Interface
	dynamic      dynamic.Interface
	pollInterval time.Duration
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return NewFromClients(clientset, dynamicClient), nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface) Client {
	return &client{
		clientset:    clientset,
		dynamic:      dynamicClient,
		pollInterval: 5 * time.Second,
	}
}
