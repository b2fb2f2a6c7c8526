package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700
)

var documentNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)

// FileSystemStore implements Store on the local filesystem. Every document
// is one JSON file under the base path, written atomically via a temp file
// and rename so a crash mid-save never leaves a half-written document.
type FileSystemStore struct {
	basePath string
	mu       sync.Mutex
}

// NewFileSystemStore initializes and returns a new instance of FileSystemStore
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := os.MkdirAll(basePath, DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", basePath, err)
	}

	return &FileSystemStore{basePath: basePath}, nil
}

// NewFileSystemStoreFromConfig creates a FileSystemStore from StoreConfig
func NewFileSystemStoreFromConfig(config StoreConfig) (*FileSystemStore, error) {
	basePath, ok := config.Config["base_path"].(string)
	if !ok {
		return nil, fmt.Errorf("base_path is required for filesystem store")
	}

	return NewFileSystemStore(basePath)
}

// Load reads a document into the given value. Absent or corrupt files yield
// found=false so callers fall back to their empty defaults instead of
// failing (load-with-default).
func (fs *FileSystemStore) Load(name string, into interface{}) (bool, error) {
	path, err := fs.documentPath(name)
	if err != nil {
		return false, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	if err = json.Unmarshal(data, into); err != nil {
		// Corrupt document: operate on the default rather than failing
		return false, nil
	}

	return true, nil
}

// Save writes a document atomically, replacing any previous content.
func (fs *FileSystemStore) Save(name string, doc interface{}) error {
	path, err := fs.documentPath(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", name, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return writeSecureFile(path, data, FilePermissions)
}

// Exists checks whether the named document is present on disk.
func (fs *FileSystemStore) Exists(name string) (bool, error) {
	path, err := fs.documentPath(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat document %s: %w", name, err)
}

// Ping verifies the base path is still accessible.
func (fs *FileSystemStore) Ping() error {
	if _, err := os.Stat(fs.basePath); err != nil {
		return fmt.Errorf("store directory not accessible: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (fs *FileSystemStore) Close() error {
	return nil
}

// GetType returns the store type identifier.
func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}

func (fs *FileSystemStore) documentPath(name string) (string, error) {
	if !documentNameRegex.MatchString(name) {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	return filepath.Join(fs.basePath, name), nil
}

func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
