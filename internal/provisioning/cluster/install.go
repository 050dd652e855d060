package cluster

import (
	"fmt"
	"strings"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/provisioning"
)

const (
	installURL  = "https://get.k3s.io"
	apiPort     = 6443
	clusterCIDR = "10.244.0.0/16"

	// detectInterface picks the private NIC name by CPU vendor. Hetzner's
	// Intel and AMD hosts name the private interface differently.
	detectInterface = `FLANNEL_INTERFACE=$(lscpu | grep -q Intel && echo 'ens10' || echo 'enp7s0')`

	masterTaint = "CriticalAddonsOnly=true:NoExecute"
)

// installCommand renders the install invocation for one node. Flags are
// passed after "sh -s -" so the install script forwards them to k3s.
func installCommand(env []string, args []string) string {
	var cmd strings.Builder
	cmd.WriteString(detectInterface)
	cmd.WriteString("\n")
	cmd.WriteString(fmt.Sprintf("curl -sfL %s | ", installURL))
	for _, e := range env {
		cmd.WriteString(e)
		cmd.WriteString(" ")
	}
	cmd.WriteString("sh -s -")
	for _, a := range args {
		cmd.WriteString(" ")
		cmd.WriteString(a)
	}
	return cmd.String()
}

// MasterInstall describes how one master is installed.
type MasterInstall struct {
	Node  provisioning.LiveServer
	Token string
	// Leader initializes the embedded datastore. Otherwise the node joins
	// through JoinAddress.
	Leader      bool
	JoinAddress string
	// TLSSANs are the extra names in the API server certificate.
	TLSSANs []string
}

// MasterInstallCommand renders the install command of a master.
func MasterInstallCommand(spec *config.Spec, m MasterInstall) (string, error) {
	env := []string{
		"INSTALL_K3S_VERSION=" + shellQuote(spec.K3sVersion),
		"K3S_TOKEN=" + shellQuote(m.Token),
	}

	args := []string{"server"}
	if m.Leader {
		args = append(args, "--cluster-init")
	} else {
		if m.JoinAddress == "" {
			return "", fmt.Errorf("master %s needs a join address", m.Node.Name)
		}
		args = append(args, flag("server", fmt.Sprintf("https://%s:%d", m.JoinAddress, apiPort)))
	}

	args = append(args,
		"--disable-cloud-controller",
		flag("disable", "servicelb"),
		flag("disable", "traefik"),
		flag("disable", "local-storage"),
		flag("disable", "metrics-server"),
		flag("write-kubeconfig-mode", "644"),
		flag("cluster-cidr", clusterCIDR),
		flag("etcd-expose-metrics", "true"),
	)
	args = append(args, nodeArgs(m.Node)...)

	if spec.EnableEncryption {
		backend, err := config.FlannelBackend(spec.K3sVersion)
		if err != nil {
			return "", err
		}
		args = append(args, flag("flannel-backend", backend))
	}
	if !spec.ScheduleWorkloadsOnMasters {
		args = append(args, flag("node-taint", masterTaint))
	}
	for _, san := range m.TLSSANs {
		args = append(args, flag("tls-san", san))
	}

	args = append(args, repeated("kube-apiserver-arg", spec.KubeAPIServerArgs)...)
	args = append(args, repeated("kube-scheduler-arg", spec.KubeSchedulerArgs)...)
	args = append(args, repeated("kube-controller-manager-arg", spec.KubeControllerManagerArgs)...)
	args = append(args, repeated("kube-cloud-controller-manager-arg", spec.KubeCloudControllerManagerArgs)...)
	args = append(args, repeated("kubelet-arg", spec.KubeletArgs)...)
	args = append(args, repeated("kube-proxy-arg", spec.KubeProxyArgs)...)

	return installCommand(env, args), nil
}

// WorkerInstallCommand renders the install command of a worker joining
// the master at serverIP.
func WorkerInstallCommand(spec *config.Spec, node provisioning.LiveServer, token, serverIP string) (string, error) {
	if serverIP == "" {
		return "", fmt.Errorf("worker %s needs the first master's private address", node.Name)
	}
	env := []string{
		"INSTALL_K3S_VERSION=" + shellQuote(spec.K3sVersion),
		"K3S_TOKEN=" + shellQuote(token),
		"K3S_URL=" + shellQuote(fmt.Sprintf("https://%s:%d", serverIP, apiPort)),
	}

	args := []string{"agent"}
	args = append(args, nodeArgs(node)...)
	args = append(args, repeated("kubelet-arg", spec.KubeletArgs)...)
	args = append(args, repeated("kube-proxy-arg", spec.KubeProxyArgs)...)

	return installCommand(env, args), nil
}

// nodeArgs are shared by masters and workers.
func nodeArgs(node provisioning.LiveServer) []string {
	args := []string{
		flag("node-name", node.Name),
		flag("kubelet-arg", "cloud-provider=external"),
		`--flannel-iface="$FLANNEL_INTERFACE"`,
	}
	if node.PrivateIP != "" {
		args = append(args, flag("node-ip", node.PrivateIP))
		if node.Role == provisioning.RoleMaster {
			args = append(args, flag("advertise-address", node.PrivateIP))
		}
	}
	if node.PublicIP != "" {
		args = append(args, flag("node-external-ip", node.PublicIP))
	}
	return args
}

func flag(name, value string) string {
	return "--" + name + "=" + shellQuote(value)
}

func repeated(name string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, flag(name, v))
	}
	return out
}

// shellQuote wraps s in single quotes unless it is made of characters the
// shell never interprets.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, unsafeShellRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=,+@%", r)
}
