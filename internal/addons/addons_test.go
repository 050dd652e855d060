package addons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/util/retry"
)

type mockClusterClient struct {
	mock.Mock
}

func (m *mockClusterClient) WaitForNodes(ctx context.Context, names []string, timeout time.Duration) error {
	return m.Called(ctx, names, timeout).Error(0)
}

func (m *mockClusterClient) LabelNodes(ctx context.Context, names []string, labels []config.Label) error {
	return m.Called(ctx, names, labels).Error(0)
}

func (m *mockClusterClient) TaintNodes(ctx context.Context, names []string, taints []config.Label) error {
	return m.Called(ctx, names, taints).Error(0)
}

func (m *mockClusterClient) EnsureSecret(ctx context.Context, secret *corev1.Secret) error {
	return m.Called(ctx, secret).Error(0)
}

func (m *mockClusterClient) ApplyPlan(ctx context.Context, plan *unstructured.Unstructured) error {
	return m.Called(ctx, plan).Error(0)
}

func testSpec(t *testing.T) *config.Spec {
	t.Helper()
	spec, err := config.Parse([]byte("cluster_name: demo\nhetzner_token: tok\n"))
	require.NoError(t, err)
	spec.HetznerToken = "tok"
	return spec
}

func newTestInstaller(client *mockClusterClient, r *scriptedRunner) *Installer {
	i := NewInstaller(client, WithCommandRunner(r.run), WithToolCheck(func() error { return nil }))
	i.kubectlBackoff = fastBackoff
	return i
}

func TestNewInstaller_KubectlBackoff(t *testing.T) {
	t.Parallel()

	var cfg retry.Config
	for _, opt := range NewInstaller(new(mockClusterClient)).kubectlBackoff {
		opt(&cfg)
	}

	assert.Equal(t, retry.Config{
		MaxRetries:   5,
		InitialDelay: 5 * time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   1.5,
	}, cfg)
}

func TestInstall_SecretThenManifestsInOrder(t *testing.T) {
	t.Parallel()
	client := new(mockClusterClient)
	client.On("EnsureSecret", mock.Anything, mock.MatchedBy(func(s *corev1.Secret) bool {
		return s.Namespace == "kube-system" && s.Name == "hcloud" &&
			string(s.Data["token"]) == "tok" && string(s.Data["network"]) == "demo"
	})).Return(nil)
	r := &scriptedRunner{}

	require.NoError(t, newTestInstaller(client, r).Install(context.Background(), testSpec(t), "/tmp/kc"))

	client.AssertExpectations(t)
	require.Len(t, r.calls, 3)
	assert.Equal(t, config.DefaultCloudControllerManagerURL, r.calls[0].args[2])
	assert.Equal(t, config.DefaultCSIDriverURL, r.calls[1].args[2])
	assert.Equal(t, config.DefaultSystemUpgradeControllerURL, r.calls[2].args[2])
}

func TestInstall_UsesExistingNetworkName(t *testing.T) {
	t.Parallel()
	client := new(mockClusterClient)
	client.On("EnsureSecret", mock.Anything, mock.MatchedBy(func(s *corev1.Secret) bool {
		return string(s.Data["network"]) == "shared"
	})).Return(nil)

	spec := testSpec(t)
	spec.ExistingNetwork = "shared"
	require.NoError(t, newTestInstaller(client, &scriptedRunner{}).Install(context.Background(), spec, "/tmp/kc"))
	client.AssertExpectations(t)
}

func TestInstall_MissingKubectl(t *testing.T) {
	t.Parallel()
	client := new(mockClusterClient)
	i := NewInstaller(client, WithToolCheck(func() error { return errors.New("missing required tools: kubectl") }))

	err := i.Install(context.Background(), testSpec(t), "/tmp/kc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubectl")
	client.AssertNotCalled(t, "EnsureSecret", mock.Anything, mock.Anything)
}

func TestInstall_SecretFailureStops(t *testing.T) {
	t.Parallel()
	client := new(mockClusterClient)
	client.On("EnsureSecret", mock.Anything, mock.Anything).Return(errors.New("forbidden"))
	r := &scriptedRunner{}

	err := newTestInstaller(client, r).Install(context.Background(), testSpec(t), "/tmp/kc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hcloud secret")
	assert.Empty(t, r.calls)
}

func TestInstall_ManifestFailureStops(t *testing.T) {
	t.Parallel()
	client := new(mockClusterClient)
	client.On("EnsureSecret", mock.Anything, mock.Anything).Return(nil)
	r := &scriptedRunner{outputs: []string{"", "forbidden"}, errs: []error{nil, errors.New("exit status 1")}}

	err := newTestInstaller(client, r).Install(context.Background(), testSpec(t), "/tmp/kc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), NameCSI)
	assert.Len(t, r.calls, 2)
}
