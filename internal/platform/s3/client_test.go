package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style S3 endpoint keeping objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *Client) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Options{
		Endpoint:  srv.URL,
		Region:    "fsn1",
		AccessKey: "access",
		SecretKey: "secret",
		PathStyle: true,
	})
	require.NoError(t, err)
	return f, client
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
		}
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
	case r.Method == http.MethodPut:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchBucket</Code></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[bucket+"/"+key] = string(body)
	case r.Method == http.MethodDelete:
		delete(f.objects, bucket+"/"+key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[key]
	return v, ok
}

func TestKubeconfigBackup_UploadAndRemove(t *testing.T) {
	t.Parallel()
	f, client := newFakeS3(t)
	backup := NewKubeconfigBackup(client, "backups")
	ctx := context.Background()

	require.NoError(t, backup.Upload(ctx, "demo", []byte("apiVersion: v1\n")))
	got, ok := f.object("backups/demo/kubeconfig")
	require.True(t, ok)
	assert.Equal(t, "apiVersion: v1\n", got)

	// A second upload reuses the bucket.
	require.NoError(t, backup.Upload(ctx, "demo", []byte("apiVersion: v1\nkind: Config\n")))

	require.NoError(t, backup.Remove(ctx, "demo"))
	_, ok = f.object("backups/demo/kubeconfig")
	assert.False(t, ok)
}

func TestClient_BucketExists(t *testing.T) {
	t.Parallel()
	_, client := newFakeS3(t)
	ctx := context.Background()

	exists, err := client.BucketExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.CreateBucket(ctx, "present"))
	exists, err = client.BucketExists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "demo/kubeconfig", ObjectKey("demo"))
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		owned    bool
		notFound bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("boom")},
		{name: "owned typed", err: &types.BucketAlreadyOwnedByYou{}, owned: true},
		{name: "owned code", err: &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}, owned: true},
		{name: "no such bucket", err: &types.NoSuchBucket{}, notFound: true},
		{name: "no such key code", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, notFound: true},
		{name: "head 404", err: &smithy.GenericAPIError{Code: "NotFound"}, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.owned, isBucketAlreadyOwnedByYou(tt.err))
			assert.Equal(t, tt.notFound, isNotFoundError(tt.err))
		})
	}
}
