package upload

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxPrescriptionSize caps uploaded prescription files at 10MB.
const MaxPrescriptionSize = 10 << 20

var (
	ErrTooLarge        = errors.New("prescription file exceeds 10MB")
	ErrUnsupportedType = errors.New("prescription must be an image or a PDF")
)

// PrescriptionStore writes uploaded prescription files to a local
// directory and hands back the stored path for the order record.
type PrescriptionStore struct {
	dir string
}

func NewPrescriptionStore(dir string) (*PrescriptionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PrescriptionStore{dir: dir}, nil
}

// Save validates size and content type, then persists the file under a
// generated name. The original filename is only consulted for its
// extension.
func (s *PrescriptionStore) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxPrescriptionSize {
		return "", ErrTooLarge
	}

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		return "", ErrUnsupportedType
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if len(ext) > 8 {
		ext = ""
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	dest, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dest.Close()

	if _, err := dest.Write(head); err != nil {
		os.Remove(path)
		return "", err
	}
	if _, err := io.Copy(dest, io.LimitReader(file, MaxPrescriptionSize)); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
