package cluster

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/k3zner/internal/config"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/ssh"
	"github.com/imamik/k3zner/internal/provisioning"
)

const k3sKubeconfig = `apiVersion: v1
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
preferences: {}
users:
- name: default
  user:
    client-certificate-data: LS0t
    client-key-data: LS0t
`

func testSpec(t *testing.T, masters, workers int) *config.Spec {
	t.Helper()
	spec := &config.Spec{
		ClusterName:    "demo",
		K3sVersion:     "v1.30.2+k3s1",
		Location:       "nbg1",
		KubeconfigPath: filepath.Join(t.TempDir(), "kube", "config"),
		Masters:        config.MastersPool{InstanceType: "cpx21", InstanceCount: masters},
	}
	if workers > 0 {
		spec.WorkerNodePools = []config.WorkerPool{{Name: "small", InstanceType: "cpx31", InstanceCount: workers}}
	}
	return spec
}

func testServer(id int64, name, role string) *hcloud.Server {
	s := &hcloud.Server{
		ID:     id,
		Name:   name,
		Labels: map[string]string{"cluster": "demo", "role": role},
	}
	s.PublicNet.IPv4.IP = net.IPv4(203, 0, 113, byte(id))
	s.PrivateNet = []hcloud.ServerPrivateNet{{IP: net.IPv4(10, 0, 0, byte(id+1))}}
	return s
}

// testTopology returns masters demo-cpx21-master1.. and workers
// demo-cpx31-pool-small-worker1.., with IDs counting up from 1.
func testTopology(masters, workers int) provisioning.Topology {
	var servers []*hcloud.Server
	id := int64(1)
	for i := 1; i <= masters; i++ {
		servers = append(servers, testServer(id, fmt.Sprintf("demo-cpx21-master%d", i), "master"))
		id++
	}
	for i := 1; i <= workers; i++ {
		servers = append(servers, testServer(id, fmt.Sprintf("demo-cpx31-pool-small-worker%d", i), "worker"))
		id++
	}
	return provisioning.NewTopology(servers)
}

// k3sHandler answers the commands of a fresh node.
func k3sHandler(token string) func(ssh.Host, string) (string, error) {
	return func(_ ssh.Host, cmd string) (string, error) {
		switch {
		case strings.HasPrefix(cmd, "cat "+tokenPath):
			return token, nil
		case cmd == "cat "+remoteKubeconfigPath:
			return k3sKubeconfig, nil
		}
		return "", nil
	}
}

func newTestContext(t *testing.T, spec *config.Spec, workers int) (*provisioning.Context, *ssh.FakeExecutor) {
	t.Helper()
	executor := ssh.NewFakeExecutor(k3sHandler(""))
	ctx := provisioning.NewContext(context.Background(), spec, hcloud_internal.NewFakeClient(), executor,
		provisioning.NewLogrObserver(logr.Discard()))
	ctx.Timeouts = config.TestTimeouts()
	ctx.State.Topology = testTopology(spec.Masters.InstanceCount, workers)
	if spec.IsHA() {
		lb := &hcloud.LoadBalancer{Name: "demo-api"}
		lb.PublicNet.IPv4.IP = net.IPv4(192, 0, 2, 10)
		ctx.State.LoadBalancer = lb
	}
	return ctx, executor
}
