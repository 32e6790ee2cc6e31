package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveImage(t *testing.T) {
	store := NewStore(t.TempDir())

	path, err := store.Save(fileHeader(t, "photo.png", pngBytes), "products")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/uploads/products/"))
	require.True(t, strings.HasSuffix(path, ".png"))

	onDisk := filepath.Join(store.Root, "products", filepath.Base(path))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	require.Equal(t, pngBytes, data)
}

func TestSaveUniqueNames(t *testing.T) {
	store := NewStore(t.TempDir())

	first, err := store.Save(fileHeader(t, "photo.png", pngBytes), "products")
	require.NoError(t, err)
	second, err := store.Save(fileHeader(t, "photo.png", pngBytes), "products")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSaveRejectsNonImage(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Save(fileHeader(t, "notes.txt", []byte("just some text content here")), "products")
	var unsupported *ErrUnsupportedType
	require.ErrorAs(t, err, &unsupported)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	store := NewStore(t.TempDir())

	big := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, MaxFileSize)...)
	_, err := store.Save(fileHeader(t, "big.png", big), "products")
	var tooLarge *ErrTooLarge
	require.ErrorAs(t, err, &tooLarge)
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())

	path, err := store.Save(fileHeader(t, "photo.png", pngBytes), "products")
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	require.NoError(t, store.Remove(path), "removing a missing file is not an error")
	require.NoError(t, store.Remove("/uploads/products/never-existed.png"))
}

func TestRemoveIgnoresPathsOutsideRoot(t *testing.T) {
	store := NewStore(t.TempDir())

	sentinel := filepath.Join(store.Root, "..", "sentinel")
	require.NoError(t, os.WriteFile(sentinel, []byte("keep"), 0o644))

	require.NoError(t, store.Remove("/uploads/../sentinel"))
	_, err := os.Stat(sentinel)
	require.NoError(t, err, "files outside the store root must not be touched")
}
