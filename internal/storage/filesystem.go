package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileBucket stores objects under Root/Name and serves them from BaseURL/Name.
// The server mounts Root as static files for local development.
type FileBucket struct {
	root    string
	name    string
	baseURL string
}

func NewFileBucket(root, name, baseURL string) (*FileBucket, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating bucket directory: %w", err)
	}
	return &FileBucket{root: root, name: name, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *FileBucket) path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(b.root, b.name, key), nil
}

func (b *FileBucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("error creating object directory: %w", err)
	}

	dst, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("object %q already exists", key)
		}
		return fmt.Errorf("error creating object: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(p)
		return fmt.Errorf("error saving object: %w", err)
	}
	return dst.Close()
}

func (b *FileBucket) PublicURL(key string) string {
	segments := strings.Split(filepath.ToSlash(key), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", b.baseURL, url.PathEscape(b.name), strings.Join(segments, "/"))
}

func (b *FileBucket) Remove(_ context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}
