package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k3zner/internal/addons/k8sclient"
	"github.com/imamik/k3zner/internal/config"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
)

func TestNewContext(t *testing.T) {
	t.Parallel()
	spec := &config.Spec{ClusterName: "demo"}
	infra := hcloud_internal.NewFakeClient()

	ctx := NewContext(context.Background(), spec, infra, nil, NewMockObserver())

	assert.Same(t, spec, ctx.Spec)
	assert.NotNil(t, ctx.State)
	assert.NotNil(t, ctx.State.PlacementGroups)
	assert.NotNil(t, ctx.Timeouts)
	assert.NotNil(t, ctx.NewKubeClient)
}

func TestContext_KubeClient(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext()

	_, err := ctx.KubeClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap has not run")

	calls := 0
	ctx.State.Kubeconfig = []byte("kubeconfig")
	ctx.NewKubeClient = func(kubeconfig []byte) (k8sclient.Client, error) {
		calls++
		assert.Equal(t, []byte("kubeconfig"), kubeconfig)
		return nil, errors.New("unreachable")
	}
	_, err = ctx.KubeClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create kubernetes client")
	assert.Equal(t, 1, calls)
}

func TestHost(t *testing.T) {
	t.Parallel()
	h := Host(LiveServer{Name: "demo-cpx21-master1", PublicIP: "203.0.113.2"})
	assert.Equal(t, "demo-cpx21-master1", h.Name)
	assert.Equal(t, "203.0.113.2", h.Address)
}
