// mock_store.go - In-memory trace listing for testing
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kylixs/flareon/internal/models"
	"github.com/kylixs/flareon/internal/storage"
)

// MockStore implements storage.Store for testing. Files are written to a temp
// directory so the session layer can read them back.
type MockStore struct {
	files     map[string]*models.TraceFile
	tempDir   string
	listErr   error
	listCalls int
	mu        sync.RWMutex
}

// NewMockStore creates a mock store writing files to tempDir.
func NewMockStore(tempDir string) *MockStore {
	return &MockStore{
		files:   make(map[string]*models.TraceFile),
		tempDir: tempDir,
	}
}

func (m *MockStore) List() ([]*models.TraceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.listErr != nil {
		return nil, &storage.DiscoveryError{Dir: m.tempDir, Err: m.listErr}
	}
	return m.sortedLocked(), nil
}

func (m *MockStore) Files() []*models.TraceFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked()
}

func (m *MockStore) Get(id string) (*models.TraceFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return file, nil
}

func (m *MockStore) sortedLocked() []*models.TraceFile {
	files := make([]*models.TraceFile, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files
}

// Ensure MockStore implements storage.Store
var _ storage.Store = (*MockStore)(nil)

// Test Helper Methods

// AddFile writes data to disk and lists it under its name-derived ID.
func (m *MockStore) AddFile(name string, data []byte) *models.TraceFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.tempDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		panic(fmt.Sprintf("failed to write test file: %v", err))
	}

	file := &models.TraceFile{
		ID:         storage.FileID(name),
		Name:       name,
		Path:       path,
		Size:       int64(len(data)),
		ModifiedAt: time.Now(),
	}
	m.files[file.ID] = file
	return file
}

// AddMissingFile lists a file that does not exist on disk.
func (m *MockStore) AddMissingFile(name string) *models.TraceFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.TraceFile{
		ID:   storage.FileID(name),
		Name: name,
		Path: filepath.Join(m.tempDir, "missing", name),
	}
	m.files[file.ID] = file
	return file
}

// SetListError makes List fail with a DiscoveryError wrapping err. Nil restores it.
func (m *MockStore) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// ListCalls returns how many times List was called.
func (m *MockStore) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// GetFileCount returns the number of listed files
func (m *MockStore) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Clear removes all files from the listing
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]*models.TraceFile)
}
