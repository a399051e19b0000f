package repositories

import (
	"chat-relay/errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps the bytes of uploaded attachments. Messages only carry
// the stored name returned by Save.
type FileStore interface {
	Save(originalName string, content io.Reader) (storedName string, size int64, err error)
	Open(storedName string) (*os.File, error)
}

// DiskStore writes each upload to its own file under one directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Storage(err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save never reuses the client file name: the stored name is a timestamp
// plus a random suffix, keeping only the original extension.
func (d *DiskStore) Save(originalName string, content io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	storedName := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)

	f, err := os.OpenFile(filepath.Join(d.dir, storedName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, errors.Storage(err)
	}
	size, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(d.dir, storedName))
		return "", 0, errors.Storage(err)
	}
	return storedName, size, nil
}

// Open rejects names that would escape the upload directory.
func (d *DiskStore) Open(storedName string) (*os.File, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return nil, errors.ErrInvalidAttachment
	}
	f, err := os.Open(filepath.Join(d.dir, storedName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrInvalidAttachment, storedName)
		}
		return nil, errors.Storage(err)
	}
	return f, nil
}
