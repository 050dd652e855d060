package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/imamik/k3zner/internal/addons"
	"github.com/imamik/k3zner/internal/addons/k8sclient"
	"github.com/imamik/k3zner/internal/config"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/ssh"
	"github.com/imamik/k3zner/internal/util/keygen"
	"github.com/imamik/k3zner/internal/util/naming"
)

const testKubeconfig = `apiVersion: v1
clusters:
- cluster:
    certificate-authority-data: LS0t
    server: https://127.0.0.1:6443
  name: default
contexts:
- context:
    cluster: default
    user: default
  name: default
current-context: default
kind: Config
users:
- name: default
  user:
    client-certificate-data: LS0t
    client-key-data: LS0t
`

const specTemplate = `hetzner_token: test-token
cluster_name: demo
kubeconfig_path: %s
k3s_version: v1.30.2+k3s1
public_ssh_key_path: %s
location: nbg1
ssh_allowed_networks:
  - 198.51.100.0/24
masters:
  instance_type: cpx21
  instance_count: %d
worker_node_pools:
  - name: small
    instance_type: cpx31
    instance_count: 2
`

// Harness wires a Reconciler to in-memory fakes of every external system.
// It is exported for the lifecycle suite in package orchestration_test.
type Harness struct {
	Dir       string
	SpecPath  string
	Spec      *config.Spec
	Cloud     *hcloud_internal.FakeClient
	Executor  *ssh.FakeExecutor
	Clientset *fake.Clientset
	Dynamic   *dynamicfake.FakeDynamicClient

	mu      sync.Mutex
	kubectl [][]string
	kubeErr error
}

// NewHarness writes a spec file with the given master count into dir and
// loads it.
func NewHarness(dir string, masters int) (*Harness, error) {
	keys, err := keygen.GenerateED25519KeyPair("test")
	if err != nil {
		return nil, err
	}
	pub := filepath.Join(dir, "id_ed25519.pub")
	if err := os.WriteFile(pub, keys.PublicKey, 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "id_ed25519"), keys.PrivateKey, 0o600); err != nil {
		return nil, err
	}

	specPath := filepath.Join(dir, "cluster.yaml")
	doc := fmt.Sprintf(specTemplate, filepath.Join(dir, "kubeconfig"), pub, masters)
	if err := os.WriteFile(specPath, []byte(doc), 0o600); err != nil {
		return nil, err
	}
	spec, err := config.LoadFile(specPath)
	if err != nil {
		return nil, err
	}

	var nodes []runtime.Object
	for i := 1; i <= masters; i++ {
		nodes = append(nodes, &corev1.Node{ObjectMeta: metav1.ObjectMeta{
			Name: naming.Server("demo", "cpx21", naming.MasterInstanceID(i)),
		}})
	}
	for i := 1; i <= 2; i++ {
		nodes = append(nodes, &corev1.Node{ObjectMeta: metav1.ObjectMeta{
			Name: naming.Server("demo", "cpx31", naming.WorkerInstanceID("small", i)),
		}})
	}

	h := &Harness{
		Dir:      dir,
		SpecPath: specPath,
		Spec:     spec,
		Cloud:    hcloud_internal.NewFakeClient(),
		//nolint:staticcheck // SA1019: NewSimpleClientset is sufficient for our testing needs
		Clientset: fake.NewSimpleClientset(nodes...),
		Dynamic: dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
			map[schema.GroupVersionResource]string{k8sclient.PlanGVR: "PlanList"}),
	}
	h.Executor = ssh.NewFakeExecutor(h.node)
	return h, nil
}

// node answers like a fresh server: no join token yet, and a kubeconfig
// once k3s is installed.
func (h *Harness) node(_ ssh.Host, cmd string) (string, error) {
	switch {
	case strings.Contains(cmd, "k3s.yaml"):
		return testKubeconfig, nil
	}
	return "", nil
}

func (h *Harness) kubectlRunner(_ context.Context, _ []string, name string, args ...string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kubectl = append(h.kubectl, append([]string{name}, args...))
	return nil, h.kubeErr
}

// FailKubectl makes every kubectl invocation fail with err.
func (h *Harness) FailKubectl(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kubeErr = err
}

// KubectlCalls returns the kubectl invocations so far.
func (h *Harness) KubectlCalls() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]string(nil), h.kubectl...)
}

// Reconciler returns a Reconciler over the harness fakes.
func (h *Harness) Reconciler(opts ...Option) *Reconciler {
	base := []Option{
		WithTimeouts(config.TestTimeouts()),
		WithKubeClientFactory(func([]byte) (k8sclient.Client, error) {
			return k8sclient.NewFromClients(h.Clientset, h.Dynamic), nil
		}),
		WithAddonOptions(
			addons.WithCommandRunner(h.kubectlRunner),
			addons.WithToolCheck(func() error { return nil }),
		),
	}
	return NewReconciler(h.Cloud, h.Executor, h.Spec, append(base, opts...)...)
}
