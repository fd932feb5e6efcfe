// Package iostore keeps guide bundles in a local directory or in an S3
// bucket.
package iostore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/guide"
)

// New creates an attachment store according to the bundle settings.
func New(ctx context.Context, cfg *config.Config) (guide.AttachmentStore, error) {
	if cfg.Bundle.Storage == "s3" {
		client, err := NewS3Client(ctx, cfg.Bundle.S3Region)
		if err != nil {
			return nil, err
		}
		return NewS3(client, cfg.Bundle.S3Bucket, cfg.Bundle.S3Prefix), nil
	}
	return NewLocal(cfg.BundleDir()), nil
}

type local struct {
	dir string
}

// NewLocal creates a store that copies files under dir.
func NewLocal(dir string) guide.AttachmentStore {
	return &local{dir: dir}
}

func (l *local) Put(
	_ context.Context,
	key, path string,
) (*guide.Attachment, error) {
	dst := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, PutError(key, err)
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, PutError(key, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, PutError(key, err)
	}
	size, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, PutError(key, err)
	}

	res := &guide.Attachment{
		Key:         key,
		Size:        size,
		ContentType: contentType(dst),
	}
	slog.Info("Stored file", "key", key, "path", dst, "size", size)
	return res, nil
}

func (l *local) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return DeleteError(key, err)
	}
	return nil
}

func contentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
