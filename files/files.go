// Package files stores binary objects next to the documents and hands out download URLs.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = fmt.Errorf("file-not-found")
	ErrInvalidPath = fmt.Errorf("invalid-file-path")
)

// Bucket is a flat namespace of objects addressed by slash separated paths.
type Bucket interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	DownloadURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// CleanPath normalizes p to a relative object path. Paths escaping the bucket are rejected.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.Join(ErrInvalidPath, fmt.Errorf("empty path"))
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", errors.Join(ErrInvalidPath, fmt.Errorf("path %q leaves the bucket", p))
		}
	}
	cp := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cp == "" {
		return "", errors.Join(ErrInvalidPath, fmt.Errorf("path %q names no object", p))
	}
	return cp, nil
}
