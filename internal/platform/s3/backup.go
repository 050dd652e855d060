package s3

import (
	"context"
	"fmt"
)

// objectStore is the part of Client the backup needs.
type objectStore interface {
	EnsureBucket(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, key string, data []byte) error
	DeleteObject(ctx context.Context, bucketName, key string) error
}

// KubeconfigBackup keeps a copy of a cluster's kubeconfig in a bucket
// under <cluster>/kubeconfig.
type KubeconfigBackup struct {
	store  objectStore
	bucket string
}

// NewKubeconfigBackup creates a backup writing to bucket through client.
func NewKubeconfigBackup(client *Client, bucket string) *KubeconfigBackup {
	return &KubeconfigBackup{store: client, bucket: bucket}
}

// ObjectKey returns the object key for a cluster.
func ObjectKey(cluster string) string {
	return cluster + "/kubeconfig"
}

// Upload stores the kubeconfig, creating the bucket if needed.
func (b *KubeconfigBackup) Upload(ctx context.Context, cluster string, kubeconfig []byte) error {
	if err := b.store.EnsureBucket(ctx, b.bucket); err != nil {
		return fmt.Errorf("failed to prepare backup bucket: %w", err)
	}
	return b.store.PutObject(ctx, b.bucket, ObjectKey(cluster), kubeconfig)
}

// Remove deletes the cluster's backup.
func (b *KubeconfigBackup) Remove(ctx context.Context, cluster string) error {
	return b.store.DeleteObject(ctx, b.bucket, ObjectKey(cluster))
}
