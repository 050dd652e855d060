package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
)

// MaxPoolSize is the provider's node ceiling per spread placement group.
const MaxPoolSize = 10

// Action is the operation a spec is validated for.
type Action string

const (
	ActionCreate  Action = "create"
	ActionDelete  Action = "delete"
	ActionUpgrade Action = "upgrade"
)

// Severity of a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding about a spec.
type ValidationError struct {
	Field    string
	Message  string
	Severity Severity
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError reports whether the finding blocks the operation.
func (ve ValidationError) IsError() bool {
	return ve.Severity == SeverityError
}

// ValidationErrors is every finding of one validation run.
type ValidationErrors []ValidationError

// Errors returns only the blocking findings.
func (v ValidationErrors) Errors() ValidationErrors {
	var out ValidationErrors
	for _, ve := range v {
		if ve.IsError() {
			out = append(out, ve)
		}
	}
	return out
}

// Warnings returns only the non-blocking findings.
func (v ValidationErrors) Warnings() ValidationErrors {
	var out ValidationErrors
	for _, ve := range v {
		if !ve.IsError() {
			out = append(out, ve)
		}
	}
	return out
}

// Err returns nil when there are no blocking findings, otherwise an error
// listing all of them.
func (v ValidationErrors) Err() error {
	errs := v.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("spec validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

var (
	clusterNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	poolNamePattern    = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
	taintEffects       = map[string]bool{"NoSchedule": true, "PreferNoSchedule": true, "NoExecute": true}
)

type collector struct {
	errs ValidationErrors
}

func (c *collector) fail(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (c *collector) warn(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Validate checks the cluster spec without talking to the cloud provider.
func (s *Spec) Validate(action Action) ValidationErrors {
	c := &collector{}

	s.validateClusterName(c)
	if s.HetznerToken == "" {
		c.fail("hetzner_token", "a Hetzner Cloud API token is required (hetzner_token or %s)", TokenEnvVar)
	}

	switch action {
	case ActionCreate:
		s.validateKubeconfigPath(c, false)
		if s.K3sVersion == "" {
			c.fail("k3s_version", "k3s version is required")
		} else if _, err := ParseK3sVersion(s.K3sVersion); err != nil {
			c.fail("k3s_version", "%v", err)
		}
		if s.Location == "" && s.Masters.Location == "" {
			c.fail("location", "location is required")
		}
		s.validateSSHKeys(c)
		s.validateNetworks(c)
		s.validateMasters(c)
		s.validateWorkerPools(c)
		s.validateNetworkZones(c)
		s.validateBackup(c)
	case ActionUpgrade:
		s.validateKubeconfigPath(c, true)
	case ActionDelete:
		s.validateKubeconfigPath(c, false)
	}

	return c.errs
}

func (s *Spec) validateClusterName(c *collector) {
	switch {
	case s.ClusterName == "":
		c.fail("cluster_name", "cluster name is required")
	case !clusterNamePattern.MatchString(s.ClusterName):
		c.fail("cluster_name", "cluster name %q must start with a lowercase letter and contain only lowercase letters, digits and dashes", s.ClusterName)
	}
}

func (s *Spec) validateKubeconfigPath(c *collector, mustExist bool) {
	info, err := os.Stat(s.KubeconfigPath)
	switch {
	case err == nil && info.IsDir():
		c.fail("kubeconfig_path", "%s is a directory", s.KubeconfigPath)
	case err != nil && mustExist:
		c.fail("kubeconfig_path", "kubeconfig %s not found; was the cluster created?", s.KubeconfigPath)
	}
}

func (s *Spec) validateSSHKeys(c *collector) {
	if s.PublicSSHKeyPath == "" {
		c.fail("public_ssh_key_path", "public SSH key path is required")
	} else if !readableFile(s.PublicSSHKeyPath) {
		c.fail("public_ssh_key_path", "%s is not a readable file", s.PublicSSHKeyPath)
	}
	if s.PrivateSSHKeyPath != "" && !readableFile(s.PrivateSSHKeyPath) {
		c.fail("private_ssh_key_path", "%s is not a readable file", s.PrivateSSHKeyPath)
	}
}

func (s *Spec) validateNetworks(c *collector) {
	if len(s.SSHAllowedNetworks) == 0 {
		c.fail("ssh_allowed_networks", "at least one network must be allowed to reach the nodes over SSH")
	}
	for _, cidr := range s.SSHAllowedNetworks {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			c.fail("ssh_allowed_networks", "%q is not a valid CIDR", cidr)
		}
	}
	if _, err := s.SubnetCIDR(); err != nil {
		c.fail("private_network_subnet", "%v", err)
	}
}

func (s *Spec) validateMasters(c *collector) {
	m := s.Masters
	if m.InstanceType == "" {
		c.fail("masters.instance_type", "instance type is required")
	}
	switch {
	case m.InstanceCount < 1:
		c.fail("masters.instance_count", "at least one master is required")
	case m.InstanceCount > MaxPoolSize:
		c.fail("masters.instance_count", "at most %d masters fit in one placement group, got %d", MaxPoolSize, m.InstanceCount)
	case m.InstanceCount > 1 && m.InstanceCount%2 == 0:
		c.fail("masters.instance_count", "masters count must be 1 or an odd number for etcd quorum, got %d", m.InstanceCount)
	}
	validateLabels(c, "masters.labels", m.Labels)
	validateTaints(c, "masters.taints", m.Taints)
}

func (s *Spec) validateWorkerPools(c *collector) {
	if len(s.WorkerNodePools) == 0 && !s.ScheduleWorkloadsOnMasters {
		c.fail("worker_node_pools", "at least one worker pool is required unless schedule_workloads_on_masters is set")
	}

	seen := make(map[string]bool)
	for i, pool := range s.WorkerNodePools {
		field := fmt.Sprintf("worker_node_pools[%d]", i)
		switch {
		case pool.Name == "":
			c.fail(field+".name", "pool name is required")
		case !poolNamePattern.MatchString(pool.Name):
			c.fail(field+".name", "pool name %q may only contain letters, digits, dashes and underscores", pool.Name)
		case seen[pool.Name]:
			c.fail(field+".name", "pool name %q is used more than once", pool.Name)
		}
		seen[pool.Name] = true

		if pool.InstanceType == "" {
			c.fail(field+".instance_type", "instance type is required")
		}
		if pool.InstanceCount < 1 || pool.InstanceCount > MaxPoolSize {
			c.fail(field+".instance_count", "instance count must be between 1 and %d, got %d", MaxPoolSize, pool.InstanceCount)
		}
		validateLabels(c, field+".labels", pool.Labels)
		validateTaints(c, field+".taints", pool.Taints)
	}
}

func (s *Spec) validateNetworkZones(c *collector) {
	zone := s.NetworkZone()
	for i, pool := range s.WorkerNodePools {
		if poolZone := NetworkZone(s.PoolLocation(pool)); poolZone != zone {
			c.fail(fmt.Sprintf("worker_node_pools[%d].location", i),
				"location %s is in network zone %s but the masters are in %s", s.PoolLocation(pool), poolZone, zone)
		}
	}
}

func (s *Spec) validateBackup(c *collector) {
	b := s.KubeconfigBackup
	if b == nil {
		return
	}
	if b.Endpoint == "" {
		c.fail("kubeconfig_backup.endpoint", "endpoint is required")
	}
	if b.Bucket == "" {
		c.fail("kubeconfig_backup.bucket", "bucket is required")
	}
	if b.AccessKey == "" || b.SecretKey == "" {
		c.fail("kubeconfig_backup", "access_key and secret_key are required")
	}
}

func validateLabels(c *collector, field string, labels []Label) {
	for _, l := range labels {
		if l.Key == "" {
			c.fail(field, "label key must not be empty")
		}
	}
}

func validateTaints(c *collector, field string, taints []Label) {
	for _, t := range taints {
		if t.Key == "" {
			c.fail(field, "taint key must not be empty")
			continue
		}
		_, effect, ok := strings.Cut(t.Value, ":")
		if !ok || !taintEffects[effect] {
			c.fail(field, "taint %s must have the form value:Effect with Effect one of NoSchedule, PreferNoSchedule, NoExecute", t.Key)
		}
	}
}

func readableFile(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- operator supplied key path
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// Catalog answers questions about what exists at the cloud provider.
type Catalog interface {
	ServerTypeExists(ctx context.Context, name string) (bool, error)
	LocationExists(ctx context.Context, name string) (bool, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
}

// ValidateRemote checks instance types, locations and the existing network
// against the provider. When publicIP is set, a warning is added if it is
// not covered by ssh_allowed_networks.
func (s *Spec) ValidateRemote(ctx context.Context, cat Catalog, publicIP string) ValidationErrors {
	c := &collector{}

	check := func(field, what, name string, exists func(context.Context, string) (bool, error)) {
		if name == "" {
			return
		}
		ok, err := exists(ctx, name)
		switch {
		case err != nil:
			c.fail(field, "failed to look up %s %s: %v", what, name, err)
		case !ok:
			c.fail(field, "%s %s does not exist", what, name)
		}
	}

	locations := map[string]string{s.MastersLocation(): "masters.location"}
	check("masters.instance_type", "instance type", s.Masters.InstanceType, cat.ServerTypeExists)
	for i, pool := range s.WorkerNodePools {
		check(fmt.Sprintf("worker_node_pools[%d].instance_type", i), "instance type", pool.InstanceType, cat.ServerTypeExists)
		if _, ok := locations[s.PoolLocation(pool)]; !ok {
			locations[s.PoolLocation(pool)] = fmt.Sprintf("worker_node_pools[%d].location", i)
		}
	}
	for loc, field := range locations {
		check(field, "location", loc, cat.LocationExists)
	}
	check("existing_network", "network", s.ExistingNetwork, cat.NetworkExists)

	if publicIP != "" && !allowsIP(s.SSHAllowedNetworks, publicIP) {
		c.warn("ssh_allowed_networks", "this machine's address %s is not in ssh_allowed_networks; SSH to the nodes will fail", publicIP)
	}

	return c.errs
}

func allowsIP(cidrs []string, ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return true
	}
	for _, cidr := range cidrs {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil && ipNet.Contains(addr) {
			return true
		}
	}
	return false
}
