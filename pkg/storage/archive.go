// Package storage persists run reports. A report is an append-only artifact:
// the engine never reads one back, operators and pipelines do.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Archive stores named report artifacts.
type Archive interface {
	Store(ctx context.Context, name string, data []byte) error
}

// Resolve turns a destination string into an archive plus the object name
// inside it. "s3://bucket/prefix/run.json" targets S3; anything else is a
// local file path.
func Resolve(cfg aws.Config, dest string) (Archive, string, error) {
	if strings.HasPrefix(dest, "s3://") {
		trimmed := strings.TrimPrefix(dest, "s3://")
		bucket, key, ok := strings.Cut(trimmed, "/")
		if !ok || bucket == "" || key == "" {
			return nil, "", fmt.Errorf("malformed s3 destination %q, want s3://bucket/key", dest)
		}
		return NewS3Archive(cfg, bucket), key, nil
	}

	dir := filepath.Dir(dest)
	return &LocalArchive{Dir: dir}, filepath.Base(dest), nil
}

// LocalArchive writes artifacts under a directory.
type LocalArchive struct {
	Dir string
}

func (a *LocalArchive) Store(ctx context.Context, name string, data []byte) error {
	if a.Dir != "" && a.Dir != "." {
		if err := os.MkdirAll(a.Dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	path := filepath.Join(a.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
