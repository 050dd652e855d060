package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/ssh"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/upgrade"
	"github.com/imamik/k3zner/internal/ui/tui"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) CreatePhases() []provisioning.Phase {
	return []provisioning.Phase{provisioning.NewValidationPhase()}
}

func (m *mockReconciler) Create(ctx context.Context) (*provisioning.State, error) {
	args := m.Called(ctx)
	state, _ := args.Get(0).(*provisioning.State)
	return state, args.Error(1)
}

func (m *mockReconciler) Delete(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockReconciler) Upgrade(ctx context.Context, opts upgrade.ProvisionerOptions) error {
	return m.Called(ctx, opts).Error(0)
}

type fakeBackup struct{}

func (fakeBackup) Upload(context.Context, string, []byte) error { return nil }
func (fakeBackup) Remove(context.Context, string) error         { return nil }

// stubFactories replaces every factory for the duration of a test. The
// factories are package state, so these tests do not run in parallel.
func stubFactories(t *testing.T, spec *config.Spec, r *mockReconciler, interactive bool) *bytes.Buffer {
	t.Helper()
	origLoad, origInfra, origExec := loadSpec, newInfraClient, newExecutor
	origBackup, origRec, origTTY, origOut := newBackup, newReconciler, isInteractiveTTY, stdout
	origTUI, origConfirm, origLister := runCreateTUI, confirmDelete, newReleaseLister
	t.Cleanup(func() {
		loadSpec, newInfraClient, newExecutor = origLoad, origInfra, origExec
		newBackup, newReconciler, isInteractiveTTY, stdout = origBackup, origRec, origTTY, origOut
		runCreateTUI, confirmDelete, newReleaseLister = origTUI, origConfirm, origLister
	})

	out := &bytes.Buffer{}
	loadSpec = func(string) (*config.Spec, error) { return spec, nil }
	newInfraClient = func(string, ...hcloud.ClientOption) hcloud.InfrastructureManager { return hcloud.NewFakeClient() }
	newExecutor = func(ssh.Config) (ssh.Executor, error) { return ssh.NewFakeExecutor(nil), nil }
	newBackup = func(context.Context, *config.BackupTarget) (provisioning.KubeconfigBackup, error) {
		return fakeBackup{}, nil
	}
	newReconciler = func(hcloud.InfrastructureManager, ssh.Executor, *config.Spec, ...orchestration.Option) Reconciler {
		return r
	}
	isInteractiveTTY = func() bool { return interactive }
	stdout = out
	return out
}

func testSpec() *config.Spec {
	return &config.Spec{ClusterName: "demo", Location: "nbg1", KubeconfigPath: "/tmp/kubeconfig"}
}

func TestCreate_PlainPrintsSummary(t *testing.T) {
	r := new(mockReconciler)
	r.On("Create", mock.Anything).Return(&provisioning.State{}, nil)
	out := stubFactories(t, testSpec(), r, false)

	require.NoError(t, Create(context.Background(), CreateOptions{ConfigPath: "cluster.yaml"}))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Cluster demo is ready")
	r.AssertExpectations(t)
}

func TestCreate_InteractiveUsesProgressView(t *testing.T) {
	r := new(mockReconciler)
	r.On("Create", mock.Anything).Return(&provisioning.State{}, nil)
	stubFactories(t, testSpec(), r, true)

	var phases []string
	runCreateTUI = func(ctx context.Context, create tui.CreateFunc, next provisioning.Observer, _, _ string, names []string) (*provisioning.State, error) {
		phases = names
		return create(ctx, next)
	}

	require.NoError(t, Create(context.Background(), CreateOptions{}))
	assert.Equal(t, []string{"validation"}, phases)
}

func TestCreate_WritesMetricsOnFailure(t *testing.T) {
	r := new(mockReconciler)
	r.On("Create", mock.Anything).Return(nil, errors.New("compute phase failed"))
	stubFactories(t, testSpec(), r, false)
	metricsFile := filepath.Join(t.TempDir(), "k3zner.prom")

	err := Create(context.Background(), CreateOptions{MetricsFile: metricsFile})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create failed")
	assert.FileExists(t, metricsFile)
}

func TestCreate_SpecLoadError(t *testing.T) {
	stubFactories(t, testSpec(), new(mockReconciler), false)
	loadSpec = func(string) (*config.Spec, error) { return nil, os.ErrNotExist }

	assert.ErrorIs(t, Create(context.Background(), CreateOptions{}), os.ErrNotExist)
}

func TestDelete_Confirmation(t *testing.T) {
	tests := []struct {
		name        string
		yes         bool
		interactive bool
		confirm     bool
		wantErr     string
		wantDelete  bool
	}{
		{name: "yes flag skips prompt", yes: true, wantDelete: true},
		{name: "confirmed", interactive: true, confirm: true, wantDelete: true},
		{name: "declined", interactive: true, confirm: false, wantErr: "deletion aborted"},
		{name: "non-interactive without yes", wantErr: "without --yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(mockReconciler)
			if tt.wantDelete {
				r.On("Delete", mock.Anything).Return(nil)
			}
			out := stubFactories(t, testSpec(), r, tt.interactive)
			confirmDelete = func(context.Context, string) (bool, error) { return tt.confirm, nil }

			err := Delete(context.Background(), DeleteOptions{Yes: tt.yes})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Cluster demo deleted")
			r.AssertExpectations(t)
		})
	}
}

// answerConfirm runs the real confirmation form with a typed answer.
func answerConfirm(answer string) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, cluster string) (bool, error) {
		var ok bool
		err := deleteConfirmForm(cluster, &ok).
			WithAccessible(true).
			WithInput(strings.NewReader(answer + "\n")).
			WithOutput(io.Discard).
			RunWithContext(ctx)
		return ok, err
	}
}

func TestDelete_PromptDeclinedStopsBeforeDelete(t *testing.T) {
	r := new(mockReconciler)
	out := stubFactories(t, testSpec(), r, true)
	confirmDelete = answerConfirm("n")

	err := Delete(context.Background(), DeleteOptions{})

	require.ErrorIs(t, err, ErrAborted)
	r.AssertNotCalled(t, "Delete", mock.Anything)
	assert.NotContains(t, out.String(), "deleted")
}

func TestDelete_PromptAcceptedDeletes(t *testing.T) {
	r := new(mockReconciler)
	r.On("Delete", mock.Anything).Return(nil)
	out := stubFactories(t, testSpec(), r, true)
	confirmDelete = answerConfirm("y")

	require.NoError(t, Delete(context.Background(), DeleteOptions{}))
	r.AssertExpectations(t)
	assert.Contains(t, out.String(), "Cluster demo deleted")
}

func TestUpgrade_PassesOptions(t *testing.T) {
	r := new(mockReconciler)
	r.On("Upgrade", mock.Anything, mock.MatchedBy(func(o upgrade.ProvisionerOptions) bool {
		return o.TargetVersion == "v1.31.0+k3s1" && o.Force && !o.DryRun && o.Out != nil
	})).Return(nil)
	out := stubFactories(t, testSpec(), r, false)

	require.NoError(t, Upgrade(context.Background(), UpgradeOptions{NewK3sVersion: "v1.31.0+k3s1", Force: true}))
	assert.Contains(t, out.String(), "submitted")
	r.AssertExpectations(t)
}

func TestUpgrade_DryRunPrintsNothingElse(t *testing.T) {
	r := new(mockReconciler)
	r.On("Upgrade", mock.Anything, mock.Anything).Return(nil)
	out := stubFactories(t, testSpec(), r, false)

	require.NoError(t, Upgrade(context.Background(), UpgradeOptions{NewK3sVersion: "v1.31.0+k3s1", DryRun: true}))
	assert.Empty(t, out.String())
}

type staticLister struct {
	versions []string
	err      error
}

func (s staticLister) List(context.Context) ([]string, error) { return s.versions, s.err }

func TestReleases(t *testing.T) {
	out := stubFactories(t, testSpec(), new(mockReconciler), false)
	newReleaseLister = func(string) releaseLister {
		return staticLister{versions: []string{"v1.31.0+k3s1", "v1.30.4+k3s1"}}
	}

	require.NoError(t, Releases(context.Background()))
	assert.Equal(t, "v1.31.0+k3s1\nv1.30.4+k3s1\n", out.String())
}

func TestReleases_Error(t *testing.T) {
	stubFactories(t, testSpec(), new(mockReconciler), false)
	newReleaseLister = func(string) releaseLister { return staticLister{err: io.ErrUnexpectedEOF} }

	err := Releases(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
