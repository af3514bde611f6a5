package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveS3Destination(t *testing.T) {
	archive, name, err := Resolve(aws.Config{}, "s3://reports/cloudreaper/run.json")
	require.NoError(t, err)
	assert.Equal(t, "cloudreaper/run.json", name)

	s3a, ok := archive.(*S3Archive)
	require.True(t, ok)
	assert.Equal(t, "reports", s3a.Bucket)
}

func TestResolveRejectsBareS3Bucket(t *testing.T) {
	_, _, err := Resolve(aws.Config{}, "s3://just-a-bucket")
	assert.Error(t, err)
}

func TestResolveLocalDestination(t *testing.T) {
	archive, name, err := Resolve(aws.Config{}, filepath.Join("out", "run.json"))
	require.NoError(t, err)
	assert.Equal(t, "run.json", name)

	local, ok := archive.(*LocalArchive)
	require.True(t, ok)
	assert.Equal(t, "out", local.Dir)
}

func TestLocalArchiveStore(t *testing.T) {
	dir := t.TempDir()
	a := &LocalArchive{Dir: filepath.Join(dir, "nested")}

	require.NoError(t, a.Store(context.Background(), "run.json", []byte(`{"ok":true}`)))

	data, err := os.ReadFile(filepath.Join(dir, "nested", "run.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}
