package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mazzegi/log"
	"github.com/natefinch/atomic"
)

var _ Bucket = (*FS)(nil)

// FS keeps objects as files below a directory. Download URLs are baseURL plus the escaped
// object path, so the directory has to be served under baseURL.
type FS struct {
	dir     string
	baseURL string
}

func NewFS(dir string, baseURL string) (*FS, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &FS{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (b *FS) Dir() string {
	return b.dir
}

func (b *FS) file(p string) (string, string, error) {
	cp, err := CleanPath(p)
	if err != nil {
		return "", "", err
	}
	return cp, filepath.Join(b.dir, filepath.FromSlash(cp)), nil
}

func (b *FS) url(cp string) string {
	segs := strings.Split(cp, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return b.baseURL + "/" + strings.Join(segs, "/")
}

// Upload replaces the object atomically. contentType is not kept, it is derived from the
// file name when served.
func (b *FS) Upload(ctx context.Context, p string, r io.Reader, contentType string) (string, error) {
	cp, file, err := b.file(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", filepath.Dir(file), err)
	}
	if err := atomic.WriteFile(file, r); err != nil {
		return "", fmt.Errorf("atomic.write-file %q: %w", file, err)
	}
	log.Debugf("files: uploaded %q (%s)", cp, contentType)
	return b.url(cp), nil
}

func (b *FS) DownloadURL(ctx context.Context, p string) (string, error) {
	cp, file, err := b.file(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.Join(ErrNotFound, fmt.Errorf("%q", cp))
		}
		return "", fmt.Errorf("stat %q: %w", file, err)
	}
	return b.url(cp), nil
}

func (b *FS) Delete(ctx context.Context, p string) error {
	cp, file, err := b.file(p)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(ErrNotFound, fmt.Errorf("%q", cp))
		}
		return fmt.Errorf("remove %q: %w", file, err)
	}
	log.Debugf("files: deleted %q", cp)
	return nil
}
