package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/mazzegi/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Bucket = (*Minio)(nil)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	SSL       bool
	// URLExpiry of presigned download URLs, one hour when zero.
	URLExpiry time.Duration
}

// Minio keeps objects in one bucket of an S3 compatible object store.
type Minio struct {
	mc     *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio: endpoint and bucket are required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.new %q: %w", cfg.Endpoint, err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Minio{
		mc:     mc,
		bucket: cfg.Bucket,
		expiry: expiry,
	}, nil
}

func (b *Minio) ensureBucket(ctx context.Context) error {
	exists, err := b.mc.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("minio.bucket-exists %q: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.mc.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio.make-bucket %q: %w", b.bucket, err)
	}
	log.Infof("files: created bucket %q", b.bucket)
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (b *Minio) Upload(ctx context.Context, p string, r io.Reader, contentType string) (string, error) {
	cp, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if err := b.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err = b.mc.PutObject(ctx, b.bucket, cp, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio.put-object %q: %w", cp, err)
	}
	return b.presign(ctx, cp)
}

func (b *Minio) presign(ctx context.Context, cp string) (string, error) {
	u, err := b.mc.PresignedGetObject(ctx, b.bucket, cp, b.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio.presigned-get-object %q: %w", cp, err)
	}
	return u.String(), nil
}

func (b *Minio) DownloadURL(ctx context.Context, p string) (string, error) {
	cp, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if _, err := b.mc.StatObject(ctx, b.bucket, cp, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return "", errors.Join(ErrNotFound, fmt.Errorf("%q", cp))
		}
		return "", fmt.Errorf("minio.stat-object %q: %w", cp, err)
	}
	return b.presign(ctx, cp)
}

// Delete of a missing object succeeds, as S3 does not report it.
func (b *Minio) Delete(ctx context.Context, p string) error {
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}
	if err := b.mc.RemoveObject(ctx, b.bucket, cp, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio.remove-object %q: %w", cp, err)
	}
	return nil
}
