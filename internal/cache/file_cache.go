package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// FileExt is appended to every sanitized key to form the blob filename.
const FileExt = ".gob"

// FileCache implements a file-based cache
// Structure: {cacheDir}/{sanitized key}.gob
type FileCache struct {
	mu       sync.RWMutex
	cacheDir string
}

func NewFileCache(cacheDir string) (*FileCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, newError("init", cacheDir, err)
	}

	return &FileCache{
		cacheDir: cacheDir,
	}, nil
}

func (c *FileCache) buildFilePath(key string) string {
	return filepath.Join(c.cacheDir, sanitizeKey(key)+FileExt)
}

func (c *FileCache) Get(key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.buildFilePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newError("read", key, err)
	}

	return data, true, nil
}

func (c *FileCache) Has(key string) bool {
	_, err := os.Stat(c.buildFilePath(key))
	return err == nil
}

func (c *FileCache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return newError("write", key, err)
	}

	// Write atomically; another process sharing the directory sees either the old or the new blob
	filePath := c.buildFilePath(key)
	tmpPath := filePath + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmpPath, value, 0644); err != nil {
		os.Remove(tmpPath)
		return newError("write", key, err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return newError("write", key, err)
	}
	return nil
}

func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.cacheDir); err != nil {
		return newError("clear", c.cacheDir, err)
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return newError("clear", c.cacheDir, err)
	}
	return nil
}
