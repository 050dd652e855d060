package config

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// WireguardNativeSince is the first k3s release with the wireguard-native
// flannel backend.
const WireguardNativeSince = "v1.23.6+k3s1"

var k3sBuildPattern = regexp.MustCompile(`^k3s(\d+)$`)

// K3sVersion is a parsed k3s release such as v1.29.3+k3s1.
type K3sVersion struct {
	raw     string
	version *semver.Version
	build   int
}

// ParseK3sVersion parses a k3s release string.
func ParseK3sVersion(s string) (K3sVersion, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return K3sVersion{}, fmt.Errorf("invalid k3s version %q: %w", s, err)
	}

	build := 0
	if m := k3sBuildPattern.FindStringSubmatch(v.Metadata()); m != nil {
		build, _ = strconv.Atoi(m[1])
	}
	return K3sVersion{raw: s, version: v, build: build}, nil
}

func (v K3sVersion) String() string {
	return v.raw
}

// Compare returns -1, 0 or 1. Releases with the same Kubernetes version are
// ordered by their k3sN build number.
func (v K3sVersion) Compare(o K3sVersion) int {
	if c := v.version.Compare(o.version); c != 0 {
		return c
	}
	switch {
	case v.build < o.build:
		return -1
	case v.build > o.build:
		return 1
	default:
		return 0
	}
}

// FlannelBackend returns the encrypted overlay backend for the release.
func FlannelBackend(version string) (string, error) {
	v, err := ParseK3sVersion(version)
	if err != nil {
		return "", err
	}
	since, _ := ParseK3sVersion(WireguardNativeSince)
	if v.Compare(since) >= 0 {
		return "wireguard-native", nil
	}
	return "wireguard", nil
}

// ValidateUpgrade checks that target is a valid release newer than current.
// force skips the ordering check.
func ValidateUpgrade(current, target string, force bool) ValidationErrors {
	c := &collector{}

	if target == "" {
		c.fail("new_k3s_version", "target k3s version is required")
		return c.errs
	}
	to, err := ParseK3sVersion(target)
	if err != nil {
		c.fail("new_k3s_version", "%v", err)
		return c.errs
	}
	if force {
		return c.errs
	}

	from, err := ParseK3sVersion(current)
	if err != nil {
		c.fail("k3s_version", "%v", err)
		return c.errs
	}
	if to.Compare(from) <= 0 {
		c.fail("new_k3s_version", "target version %s must be newer than the current version %s (use --force to override)", target, current)
	}
	return c.errs
}

// Prerelease reports whether the release carries a pre-release suffix such
// as -rc1.
func (v K3sVersion) Prerelease() bool {
	return v.version.Prerelease() != ""
}
