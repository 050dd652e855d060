package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k3zner/internal/provisioning"
)

func leaderNode() provisioning.LiveServer {
	return provisioning.LiveServer{
		Name:      "demo-cpx21-master1",
		Role:      provisioning.RoleMaster,
		PublicIP:  "203.0.113.1",
		PrivateIP: "10.0.0.2",
	}
}

func TestMasterInstallCommand_Leader(t *testing.T) {
	t.Parallel()
	spec := testSpec(t, 3, 0)

	cmd, err := MasterInstallCommand(spec, MasterInstall{
		Node:    leaderNode(),
		Token:   "secret",
		Leader:  true,
		TLSSANs: []string{"192.0.2.10", "10.0.0.2"},
	})
	require.NoError(t, err)

	assert.Contains(t, cmd, detectInterface+"\n")
	assert.Contains(t, cmd, "curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION=v1.30.2+k3s1 K3S_TOKEN=secret sh -s - server --cluster-init")
	for _, want := range []string{
		"--disable-cloud-controller",
		"--node-name=demo-cpx21-master1",
		"--node-ip=10.0.0.2",
		"--advertise-address=10.0.0.2",
		"--node-external-ip=203.0.113.1",
		`--flannel-iface="$FLANNEL_INTERFACE"`,
		"--node-taint=CriticalAddonsOnly=true:NoExecute",
		"--tls-san=192.0.2.10",
		"--tls-san=10.0.0.2",
	} {
		assert.Contains(t, cmd, want)
	}
	assert.NotContains(t, cmd, "--flannel-backend")
	assert.NotContains(t, cmd, "--server=")
}

func TestMasterInstallCommand_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		mutate  func(*MasterInstall)
		want    []string
		notWant []string
	}{
		{
			name:    "encryption on a current release",
			version: "v1.30.2+k3s1",
			want:    []string{"--flannel-backend=wireguard-native"},
		},
		{
			name:    "encryption on an old release",
			version: "v1.22.3+k3s1",
			want:    []string{"--flannel-backend=wireguard"},
			notWant: []string{"wireguard-native"},
		},
		{
			name:    "joining master",
			version: "v1.30.2+k3s1",
			mutate: func(m *MasterInstall) {
				m.Leader = false
				m.JoinAddress = "192.0.2.10"
			},
			want:    []string{"sh -s - server --server=https://192.0.2.10:6443"},
			notWant: []string{"--cluster-init"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec := testSpec(t, 3, 0)
			spec.K3sVersion = tt.version
			spec.EnableEncryption = true
			m := MasterInstall{Node: leaderNode(), Token: "secret", Leader: true}
			if tt.mutate != nil {
				tt.mutate(&m)
			}

			cmd, err := MasterInstallCommand(spec, m)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, cmd, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, cmd, w)
			}
		})
	}
}

func TestMasterInstallCommand_ExtraArgsAndWorkloads(t *testing.T) {
	t.Parallel()
	spec := testSpec(t, 1, 0)
	spec.ScheduleWorkloadsOnMasters = true
	spec.KubeAPIServerArgs = []string{"enable-admission-plugins=NodeRestriction"}
	spec.KubeSchedulerArgs = []string{"bind-address=0.0.0.0"}
	spec.KubeletArgs = []string{"max-pods=200"}
	spec.KubeProxyArgs = []string{"metrics-bind-address=0.0.0.0 weird"}

	cmd, err := MasterInstallCommand(spec, MasterInstall{Node: leaderNode(), Token: "t", Leader: true})
	require.NoError(t, err)

	assert.NotContains(t, cmd, "CriticalAddonsOnly")
	assert.Contains(t, cmd, "--kube-apiserver-arg=enable-admission-plugins=NodeRestriction")
	assert.Contains(t, cmd, "--kube-scheduler-arg=bind-address=0.0.0.0")
	assert.Contains(t, cmd, "--kubelet-arg=max-pods=200")
	assert.Contains(t, cmd, "--kube-proxy-arg='metrics-bind-address=0.0.0.0 weird'")
}

func TestMasterInstallCommand_JoinRequiresAddress(t *testing.T) {
	t.Parallel()
	_, err := MasterInstallCommand(testSpec(t, 3, 0), MasterInstall{Node: leaderNode(), Token: "t"})
	assert.ErrorContains(t, err, "needs a join address")
}

func TestWorkerInstallCommand(t *testing.T) {
	t.Parallel()
	spec := testSpec(t, 1, 1)
	spec.KubeAPIServerArgs = []string{"audit-log-maxage=30"}
	spec.KubeletArgs = []string{"max-pods=200"}
	worker := provisioning.LiveServer{
		Name:      "demo-cpx31-pool-small-worker1",
		Role:      provisioning.RoleWorker,
		PublicIP:  "203.0.113.5",
		PrivateIP: "10.0.0.6",
	}

	cmd, err := WorkerInstallCommand(spec, worker, "secret", "10.0.0.2")
	require.NoError(t, err)
	assert.Contains(t, cmd, "K3S_URL=https://10.0.0.2:6443 sh -s - agent --node-name=demo-cpx31-pool-small-worker1")
	assert.Contains(t, cmd, "--kubelet-arg=max-pods=200")
	assert.NotContains(t, cmd, "audit-log-maxage")
	assert.NotContains(t, cmd, "--advertise-address")
	assert.NotContains(t, cmd, "CriticalAddonsOnly")

	_, err = WorkerInstallCommand(spec, worker, "secret", "")
	assert.Error(t, err)
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"v1.30.2+k3s1", "v1.30.2+k3s1"},
		{"https://10.0.0.2:6443", "https://10.0.0.2:6443"},
		{"", "''"},
		{"a b", "'a b'"},
		{"$(reboot)", "'$(reboot)'"},
		{"it's", `'it'\''s'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shellQuote(tt.in), tt.in)
	}
}
