package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://kb/indexes/ulcer_index.db", "kb", "indexes/ulcer_index.db", false},
		{"s3://kb/", "", "", true},
		{"s3:///key", "", "", true},
		{"file:///tmp/x", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
	assert.True(t, IsURI("s3://b/k"))
	assert.False(t, IsURI("ulcer_index.db"))
}

func TestS3Store_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.db")
	require.NoError(t, os.WriteFile(src, []byte("artifact bytes"), 0644))

	store := newS3Store(newFakeS3(), nil)
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, src, "s3://kb/ulcer_index.db"))

	dest := filepath.Join(dir, "copy.db")
	require.NoError(t, store.Download(ctx, "s3://kb/ulcer_index.db", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "artifact bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestS3Store_DownloadMissingIsNotFound(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "index.db")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	err := newS3Store(newFakeS3(), nil).Download(context.Background(), "s3://kb/nope.db", dest)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	data, _ := os.ReadFile(dest)
	assert.Equal(t, "old", string(data), "existing file untouched")
}

func TestS3Store_UploadFailureIsCapability(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.db")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	fake := newFakeS3()
	fake.failPut = errors.New("access denied")
	err := newS3Store(fake, nil).Upload(context.Background(), src, "s3://kb/index.db")
	assert.True(t, errors.Is(err, entities.ErrCapability))
}

func TestS3Store_BadURIIsInput(t *testing.T) {
	err := newS3Store(newFakeS3(), nil).Upload(context.Background(), "x", "not-a-uri")
	assert.True(t, errors.Is(err, entities.ErrInput))
}
