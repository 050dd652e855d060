// Package addons installs the components a fresh k3s cluster needs to run on
// Hetzner Cloud: the hcloud secret, the cloud controller manager, the CSI
// driver and the system-upgrade-controller.
//
// Manifests are applied by URL with kubectl. Their content is opaque to
// k3zner; only the URLs are configurable.
package addons
