package slotstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type FileOption struct {
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// FileStore 每个槽位对应状态目录下的一个文件
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.Errorf("slot store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithMessagef(err, "failed to create slot store dir: %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	// 槽位键是固定的已知值，这里只做最基本的防护
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(f.dir, name)
}

func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	return os.WriteFile(f.path(key), []byte(value), 0o600)
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
