package upload

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFile(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("prescription", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	file, header, err := req.FormFile("prescription")
	require.NoError(t, err)
	return file, header
}

func TestSavePDF(t *testing.T) {
	store, err := NewPrescriptionStore(t.TempDir())
	require.NoError(t, err)

	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 1024)...)
	file, header := multipartFile(t, "rx.pdf", content)
	defer file.Close()

	path, err := store.Save(file, header)
	require.NoError(t, err)
	assert.FileExists(t, path)

	saved, err := os.Open(path)
	require.NoError(t, err)
	defer saved.Close()
	data, err := io.ReadAll(saved)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	store, err := NewPrescriptionStore(t.TempDir())
	require.NoError(t, err)

	file, header := multipartFile(t, "notes.txt", []byte("just some plain text"))
	defer file.Close()

	_, err = store.Save(file, header)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveRejectsOversized(t *testing.T) {
	store, err := NewPrescriptionStore(t.TempDir())
	require.NoError(t, err)

	file, header := multipartFile(t, "rx.pdf", []byte("%PDF-1.4"))
	defer file.Close()
	header.Size = MaxPrescriptionSize + 1

	_, err = store.Save(file, header)
	assert.ErrorIs(t, err, ErrTooLarge)
}
