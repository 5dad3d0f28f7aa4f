package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Fetch mirrors the objects directly under prefix in bucket into dir, overwriting files of
// the same name. Nested "folders" and hidden objects are skipped. It returns the number of
// files written.
func Fetch(ctx context.Context, client storage.Client, bucket, prefix, dir string, l *zap.Logger) (int, error) {
	if l == nil {
		l = zap.NewNop()
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return 0, reconcile.NewConfigurationError(bucket, "bucket does not exist")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	listPrefix := strings.TrimSuffix(prefix, "/")
	if listPrefix != "" {
		listPrefix += "/"
	}

	opts := minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: false,
	}

	written := 0
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return written, fmt.Errorf("failed to list %s/%s: %w", bucket, listPrefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := path.Base(obj.Key)
		if isHidden(name) {
			l.Debug("Skipping hidden object", zap.String("key", obj.Key))
			continue
		}
		if err := download(ctx, client, bucket, obj.Key, filepath.Join(dir, name)); err != nil {
			return written, err
		}
		written++
		l.Debug("Fetched object", zap.String("key", obj.Key), zap.Int64("size", obj.Size))
	}

	l.Info("Fetched vocabulary files",
		zap.String("bucket", bucket),
		zap.String("prefix", listPrefix),
		zap.String("dir", dir),
		zap.Int("files", written),
	)
	return written, nil
}

func download(ctx context.Context, client storage.Client, bucket, key, dest string) error {
	reader, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer reader.Close()

	// Download beside dest, then rename into place
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}
