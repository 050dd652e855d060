// Package s3 stores kubeconfig backups in S3-compatible object storage
// such as Hetzner Object Storage.
//
// The bucket is created on first upload. Objects are keyed by cluster
// name so several clusters can share one bucket.
package s3
