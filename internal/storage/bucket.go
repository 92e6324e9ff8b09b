// Package storage keeps uploaded images in buckets on local disk and hands out
// public or signed URLs for them.
package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

const (
	MB = 1 << 20

	// SniffLen is how many leading bytes Validate inspects.
	SniffLen = 3072
)

// Bucket is a named object namespace with an upload ceiling.
type Bucket struct {
	Name     string
	MaxBytes int64
	Public   bool
}

var (
	Avatars       = Bucket{Name: "avatars", MaxBytes: 2 * MB, Public: false}
	ProductImages = Bucket{Name: "product-images", MaxBytes: 5 * MB, Public: true}
	ShopImages    = Bucket{Name: "shop-images", MaxBytes: 5 * MB, Public: true}
)

var buckets = map[string]Bucket{
	Avatars.Name:       Avatars,
	ProductImages.Name: ProductImages,
	ShopImages.Name:    ShopImages,
}

// BucketByName looks up one of the fixed buckets.
func BucketByName(name string) (Bucket, bool) {
	b, ok := buckets[name]
	return b, ok
}

var (
	ErrEmptyFile = apperr.Validation("file is empty")
	ErrNotImage  = apperr.Validation("only image files can be uploaded (JPEG, PNG, WebP or GIF)")
)

// TooLargeError reports an upload over the bucket ceiling.
func TooLargeError(b Bucket) error {
	return apperr.Validation(fmt.Sprintf("image must be smaller than %d MB", b.MaxBytes/MB))
}

var allowedImages = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Validate checks an upload of size bytes whose first bytes are head against
// b. The size check runs before any content is inspected.
func Validate(b Bucket, size int64, head []byte) (*mimetype.MIME, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > b.MaxBytes {
		return nil, TooLargeError(b)
	}
	mt := mimetype.Detect(head)
	if !mimetype.EqualsAny(mt.String(), allowedImages...) {
		return nil, ErrNotImage
	}
	return mt, nil
}

// ObjectKey builds <owner>/<slug>-<uuid><ext> for an upload named filename.
func ObjectKey(owner, filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := slug.Make(base)
	if name == "" {
		name = "image"
	}
	if len(name) > 40 {
		name = strings.Trim(name[:40], "-")
	}
	return fmt.Sprintf("%s/%s-%s%s", owner, name, uuid.NewString(), ext)
}

// cleanKey rejects keys that would escape the bucket directory.
func cleanKey(key string) (string, bool) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", false
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", false
	}
	return cleaned, true
}
