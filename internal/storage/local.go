package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object describes a stored upload.
type Object struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Local stores objects under <root>/<bucket>/<key>.
type Local struct {
	root       string
	baseURL    string
	signer     *Signer
	privateTTL time.Duration
}

func NewLocal(root, baseURL string, signer *Signer, privateTTL time.Duration) (*Local, error) {
	for name := range buckets {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket dir %s: %w", name, err)
		}
	}
	return &Local{
		root:       root,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		privateTTL: privateTTL,
	}, nil
}

func (l *Local) path(b Bucket, key string) (string, error) {
	cleaned, ok := cleanKey(key)
	if !ok {
		return "", errors.New("invalid object key")
	}
	return filepath.Join(l.root, b.Name, filepath.FromSlash(cleaned)), nil
}

// Put validates r against b and writes it under a fresh key for owner.
// Nothing is written when validation fails.
func (l *Local) Put(ctx context.Context, b Bucket, owner, filename string, size int64, r io.Reader) (Object, error) {
	head := make([]byte, SniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mt, err := Validate(b, size, head)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	key := ObjectKey(owner, filename, mt.Extension())
	dst, err := l.path(b, key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return Object{}, err
	}

	// the body may lie about its size; stop one byte past the ceiling
	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), b.MaxBytes+1)
	written, err := io.Copy(f, limited)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > b.MaxBytes {
		err = TooLargeError(b)
	}
	if err != nil {
		os.Remove(dst)
		return Object{}, err
	}

	obj := Object{Bucket: b.Name, Key: key, ContentType: mt.String(), Size: written}
	if obj.URL, obj.ExpiresAt, err = l.URL(b, key); err != nil {
		return Object{}, err
	}
	return obj, nil
}

// PutForm stores a multipart file field.
func (l *Local) PutForm(ctx context.Context, b Bucket, owner string, fh *multipart.FileHeader) (Object, error) {
	if fh.Size > b.MaxBytes {
		return Object{}, TooLargeError(b)
	}
	src, err := fh.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return l.Put(ctx, b, owner, fh.Filename, fh.Size, src)
}

// URL returns the address of key. Private buckets get a signed URL and its
// expiry.
func (l *Local) URL(b Bucket, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, nil
	}
	u := fmt.Sprintf("%s/storage/%s/%s", l.baseURL, b.Name, escapeKey(key))
	if b.Public {
		return u, time.Time{}, nil
	}
	token, exp, err := l.signer.Sign(b.Name, key, l.privateTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return u + "?token=" + url.QueryEscape(token), exp, nil
}

// PublicURL is URL for public buckets; it returns "" for an empty key.
func (l *Local) PublicURL(b Bucket, key string) string {
	if !b.Public {
		return ""
	}
	u, _, _ := l.URL(b, key)
	return u
}

// Open returns the stored object for reading.
func (l *Local) Open(b Bucket, key string) (*os.File, error) {
	p, err := l.path(b, key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes key. Missing objects are not an error.
func (l *Local) Delete(b Bucket, key string) error {
	p, err := l.path(b, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
