// Package uploads stores product images on local disk and serves them
// back under URLPrefix.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	URLPrefix = "/uploads/"
	FieldName = "productImage"
)

var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("only jpeg, jpg, png and gif images are allowed")
)

var allowedExt = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}

var allowedMIME = []string{"image/jpeg", "image/png", "image/gif"}

type Storage struct {
	dir     string
	maxSize int64
}

// New creates dir if needed.
func New(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, maxSize: maxSize}, nil
}

func (s *Storage) Dir() string { return s.dir }

// MaxSize is the largest accepted image in bytes.
func (s *Storage) MaxSize() int64 { return s.maxSize }

// Save validates fh and writes it under a generated name, returning the
// public URL of the stored file.
func (s *Storage) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxSize {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxSize)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", ErrUnsupported
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("sniff upload: %w", err)
	}
	if !mimetype.EqualsAny(mt.String(), allowedMIME...) {
		return "", ErrUnsupported
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s%s", FieldName, time.Now().UnixMilli(), uuid.NewString(), ext)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	// the size header is client supplied, so cap the copy as well
	n, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil && n > s.maxSize {
		err = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxSize)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}

	return URLPrefix + name, nil
}

// Remove deletes the file behind url. The placeholder and urls outside
// URLPrefix are ignored.
func (s *Storage) Remove(url string) error {
	if url == "" || url == models.PlaceholderImage || !strings.HasPrefix(url, URLPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, URLPrefix))
	if name == "." || name == "/" || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload %s: %w", name, err)
	}
	return nil
}
