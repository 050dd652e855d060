package compute

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k3zner/internal/provisioning"
)

// basePackages are installed on every node. wireguard backs the encrypted
// flannel backend.
var basePackages = []string{"fail2ban", "wireguard"}

// readyMarker is written on every boot; the SSH readiness probe reads it.
const readyMarker = "/etc/ready"

var baseCommands = []string{
	"crontab -l > /etc/cron_bkp",
	`echo "@reboot echo true > ` + readyMarker + `" >> /etc/cron_bkp`,
	"crontab /etc/cron_bkp",
	`sed -i 's/[#]*PermitRootLogin yes/PermitRootLogin prohibit-password/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*PasswordAuthentication yes/PasswordAuthentication no/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*X11Forwarding yes/X11Forwarding no/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*MaxAuthTries [0-9]*/MaxAuthTries 2/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*AllowTcpForwarding yes/AllowTcpForwarding no/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*AllowAgentForwarding yes/AllowAgentForwarding no/g' /etc/ssh/sshd_config`,
	`sed -i 's/[#]*AuthorizedKeysFile.*/AuthorizedKeysFile .ssh\/authorized_keys/g' /etc/ssh/sshd_config`,
	"systemctl restart sshd",
	"systemctl stop systemd-resolved",
	"systemctl disable systemd-resolved",
	"rm /etc/resolv.conf",
	"echo 'nameserver 1.1.1.1' > /etc/resolv.conf",
	"echo 'nameserver 1.0.0.1' >> /etc/resolv.conf",
}

const rebootCommand = "shutdown -r now"

type cloudConfig struct {
	Packages []string `yaml:"packages"`
	RunCmd   []string `yaml:"runcmd"`
}

// UserData renders the first-boot cloud-config of a server. The node
// reboots at the end unless one of its post-create commands already does.
func UserData(def provisioning.ServerDefinition) (string, error) {
	cfg := cloudConfig{
		Packages: append(append([]string{}, basePackages...), def.AdditionalPackages...),
		RunCmd:   append(append([]string{}, baseCommands...), def.PostCreateCommands...),
	}
	if !rebootsItself(def.PostCreateCommands) {
		cfg.RunCmd = append(cfg.RunCmd, rebootCommand)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cloud-config: %w", err)
	}
	return "#cloud-config\n" + string(out), nil
}

func rebootsItself(commands []string) bool {
	for _, cmd := range commands {
		if strings.Contains(cmd, "@reboot") {
			continue
		}
		if strings.Contains(cmd, "shutdown") || strings.Contains(cmd, "reboot") {
			return true
		}
	}
	return false
}
