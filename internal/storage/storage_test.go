package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngOf(size int) []byte {
	b := make([]byte, size)
	copy(b, pngHeader)
	return b
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		bucket Bucket
		size   int64
		head   []byte
		want   string
	}{
		{"png ok", ProductImages, 1024, pngHeader, ""},
		{"jpeg ok", ShopImages, 1024, []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), ""},
		{"six megabytes", ProductImages, 6 * MB, pngHeader, "image must be smaller than 5 MB"},
		{"avatar over two megabytes", Avatars, 3 * MB, pngHeader, "image must be smaller than 2 MB"},
		{"text file", ProductImages, 11, []byte("hello world"), ErrNotImage.Error()},
		{"pdf", ProductImages, 9, []byte("%PDF-1.7\n"), ErrNotImage.Error()},
		{"empty", ProductImages, 0, nil, ErrEmptyFile.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := Validate(tt.bucket, tt.size, tt.head)
			if tt.want == "" {
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(mt.String(), "image/"))
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
	assert.NotEqual(t, TooLargeError(ProductImages).Error(), ErrNotImage.Error())
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("user-1", "My Shop Front!.JPG", ".jpg")
	assert.True(t, strings.HasPrefix(key, "user-1/my-shop-front-"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, ObjectKey("user-1", "My Shop Front!.JPG", ".jpg"))

	assert.True(t, strings.HasPrefix(ObjectKey("u", "%%%.png", ".png"), "u/image-"))
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../x", "..", `a\b`} {
		_, ok := cleanKey(bad)
		assert.False(t, ok, bad)
	}
	got, ok := cleanKey("u1/a.png")
	assert.True(t, ok)
	assert.Equal(t, "u1/a.png", got)
}

// errReader fails if read past the sniffing window.
type errReader struct {
	data []byte
	read int
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.read >= SniffLen {
		panic("read past sniffing window")
	}
	n := copy(p, r.data[r.read:min(len(r.data), SniffLen)])
	r.read += n
	return n, nil
}

func newLocal(t *testing.T) (*Local, *Signer) {
	t.Helper()
	signer := NewSigner("secret")
	l, err := NewLocal(t.TempDir(), "http://files.test/", signer, time.Hour)
	require.NoError(t, err)
	return l, signer
}

func TestPutRejectsBeforeWriting(t *testing.T) {
	l, _ := newLocal(t)
	ctx := context.Background()

	_, err := l.Put(ctx, ProductImages, "u1", "big.png", 6*MB, &errReader{data: pngOf(6 * MB)})
	require.Error(t, err)
	assert.Equal(t, "image must be smaller than 5 MB", err.Error())

	_, err = l.Put(ctx, ProductImages, "u1", "notes.txt", 20, strings.NewReader("just some plain text"))
	assert.ErrorIs(t, err, ErrNotImage)

	entries, err := os.ReadDir(filepath.Join(l.root, ProductImages.Name))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutAndServePublic(t *testing.T) {
	l, signer := newLocal(t)
	data := pngOf(10_000)

	obj, err := l.Put(context.Background(), ProductImages, "seller-1", "Fresh Mangoes.png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.True(t, strings.HasPrefix(obj.URL, "http://files.test/storage/product-images/seller-1/fresh-mangoes-"))
	assert.True(t, obj.ExpiresAt.IsZero())

	e := echo.New()
	h := NewHandler(l, signer)
	e.GET("/storage/:bucket/*", h.Serve)

	u, err := url.Parse(obj.URL)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestPrivateObjectsNeedSignedURL(t *testing.T) {
	l, signer := newLocal(t)
	data := pngOf(500)

	obj, err := l.Put(context.Background(), Avatars, "user-1", "me.png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, obj.URL, "?token=")
	assert.WithinDuration(t, time.Now().Add(time.Hour), obj.ExpiresAt, time.Minute)

	e := echo.New()
	e.GET("/storage/:bucket/*", NewHandler(l, signer).Serve)

	u, err := url.Parse(obj.URL)
	require.NoError(t, err)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get(u.RequestURI()).Code)
	assert.Equal(t, http.StatusForbidden, get(u.Path).Code)

	other, _, err := signer.Sign(Avatars.Name, "user-2/x.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(u.Path+"?token="+url.QueryEscape(other)).Code)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, http.StatusForbidden, get(u.RequestURI()).Code, "expired after an hour")
}

func TestDelete(t *testing.T) {
	l, _ := newLocal(t)
	data := pngOf(100)
	obj, err := l.Put(context.Background(), ShopImages, "s1", "x.png", 100, bytes.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, l.Delete(ShopImages, obj.Key))
	require.NoError(t, l.Delete(ShopImages, obj.Key))
	_, err = l.Open(ShopImages, obj.Key)
	assert.ErrorIs(t, err, os.ErrNotExist)

	f, err := l.Open(ShopImages, "../../etc/passwd")
	assert.Error(t, err)
	if f != nil {
		io.Copy(io.Discard, f)
	}
}
