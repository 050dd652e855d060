// Package infrastructure provisions the cloud resources servers depend on:
// the private network, the firewall, the SSH key, the spread placement
// groups and, for HA clusters, the API load balancer.
//
// Every resource is found by its deterministic name first, so running the
// phase again creates only what is missing.
package infrastructure
