// Package upload persists multipart image files on local disk and hands
// back public path references for the HTTP layer.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the per-file upload cap.
const MaxFileSize = 5 << 20 // 5 MiB

const publicPrefix = "/uploads"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ErrUnsupportedType is returned for uploads whose sniffed content type is
// not an allowed image type.
type ErrUnsupportedType struct {
	ContentType string
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported file type %s, only images are allowed", e.ContentType)
}

// ErrTooLarge is returned for uploads above MaxFileSize.
type ErrTooLarge struct {
	Size int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("file of %d bytes exceeds the %d byte limit", e.Size, int64(MaxFileSize))
}

type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Save writes an uploaded image under <root>/<resource>/ and returns its
// public path. The real content type is sniffed from the first 512 bytes,
// never trusted from the request.
func (s *Store) Save(fh *multipart.FileHeader, resource string) (string, error) {
	if fh.Size > MaxFileSize {
		return "", &ErrTooLarge{Size: fh.Size}
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload header: %w", err)
	}
	contentType := http.DetectContentType(buffer[:n])
	if !allowedImageTypes[contentType] {
		return "", &ErrUnsupportedType{ContentType: contentType}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	dir := filepath.Join(s.Root, resource)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = extensionFor(contentType)
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)

	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	return path.Join(publicPrefix, resource, name), nil
}

// Remove deletes the file behind a public path. Removing a path that does
// not exist is not an error.
func (s *Store) Remove(publicPath string) error {
	rel, ok := strings.CutPrefix(publicPath, publicPrefix+"/")
	if !ok || rel == "" {
		return nil
	}
	rel = filepath.Clean(rel)
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Root, rel)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
