package infrastructure

import (
	"fmt"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/naming"
)

// ProvisionFirewall ensures the cluster firewall. Servers are attached to it
// when they are created.
func (p *Provisioner) ProvisionFirewall(ctx *provisioning.Context) error {
	rules, err := FirewallRules(ctx.Spec)
	if err != nil {
		return err
	}

	fw, err := ctx.Infra.EnsureFirewall(ctx, naming.Firewall(ctx.Spec.ClusterName), rules,
		labels.NewLabelBuilder(ctx.Spec.ClusterName).Build())
	if err != nil {
		return fmt.Errorf("failed to ensure firewall: %w", err)
	}
	ctx.State.Firewall = fw
	return nil
}

// FirewallRules returns the inbound rules of the cluster firewall. The API
// port is opened to the world only when there is no load balancer in
// front of the single master.
func FirewallRules(spec *config.Spec) ([]hcloud.FirewallRule, error) {
	sshSources, err := parseCIDRs(spec.SSHAllowedNetworks)
	if err != nil {
		return nil, fmt.Errorf("invalid ssh_allowed_networks: %w", err)
	}
	private, err := parseCIDRs([]string{spec.PrivateNetworkSubnet})
	if err != nil {
		return nil, fmt.Errorf("invalid private_network_subnet: %w", err)
	}
	anywhere, _ := parseCIDRs([]string{"0.0.0.0/0", "::/0"})

	rules := []hcloud.FirewallRule{
		{
			Description: hcloud.Ptr("Allow port 22 (SSH)"),
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    hcloud.FirewallRuleProtocolTCP,
			Port:        hcloud.Ptr("22"),
			SourceIPs:   sshSources,
		},
		{
			Description: hcloud.Ptr("Allow ICMP (ping)"),
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    hcloud.FirewallRuleProtocolICMP,
			SourceIPs:   anywhere,
		},
		{
			Description: hcloud.Ptr("Allow all TCP traffic between nodes on the private network"),
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    hcloud.FirewallRuleProtocolTCP,
			Port:        hcloud.Ptr("any"),
			SourceIPs:   private,
		},
		{
			Description: hcloud.Ptr("Allow all UDP traffic between nodes on the private network"),
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    hcloud.FirewallRuleProtocolUDP,
			Port:        hcloud.Ptr("any"),
			SourceIPs:   private,
		},
	}

	if !spec.IsHA() {
		rules = append(rules, hcloud.FirewallRule{
			Description: hcloud.Ptr("Allow port 6443 (Kubernetes API server)"),
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    hcloud.FirewallRuleProtocolTCP,
			Port:        hcloud.Ptr("6443"),
			SourceIPs:   anywhere,
		})
	}
	return rules, nil
}

func parseCIDRs(cidrs []string) ([]net.IPNet, error) {
	nets := make([]net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		nets = append(nets, *n)
	}
	return nets, nil
}
