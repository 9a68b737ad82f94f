package uploads

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(FieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[FieldName][0]
}

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 1024)
	require.NoError(t, err)

	url, err := s.Save(fileHeader(t, "mug.PNG", pngBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, URLPrefix+FieldName+"-"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	path := filepath.Join(dir, strings.TrimPrefix(url, URLPrefix))
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	require.NoError(t, s.Remove(url))
	assert.NoFileExists(t, path)
	// removing twice is harmless
	assert.NoError(t, s.Remove(url))
}

func TestSaveRejects(t *testing.T) {
	s, err := New(t.TempDir(), 32)
	require.NoError(t, err)

	_, err = s.Save(fileHeader(t, "big.png", pngBytes))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Save(fileHeader(t, "notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, ErrUnsupported)

	// right extension, wrong content
	_, err = s.Save(fileHeader(t, "fake.jpg", []byte("plain text pretending")))
	assert.ErrorIs(t, err, ErrUnsupported)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveIgnoresForeignURLs(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "uploads"), 1024)
	require.NoError(t, err)

	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	placeholder := filepath.Join(s.Dir(), "placeholder.jpg")
	require.NoError(t, os.WriteFile(placeholder, []byte("x"), 0o644))

	assert.NoError(t, s.Remove(models.PlaceholderImage))
	assert.NoError(t, s.Remove(""))
	assert.NoError(t, s.Remove("https://cdn.example/a.png"))
	assert.NoError(t, s.Remove(URLPrefix+"../secret.txt"))

	assert.FileExists(t, outside)
	assert.FileExists(t, placeholder)
}
