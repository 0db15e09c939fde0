// Package storage discovers trace files on disk and loads their contents.
package storage

import (
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kylixs/flareon/internal/logging"
	"github.com/kylixs/flareon/internal/models"
	"github.com/labstack/gommon/log"
)

// ErrNotFound is returned when an ID does not match any discovered file.
var ErrNotFound = errors.New("trace file not found")

// DiscoveryError reports a failed directory scan. The previous listing is kept.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("scanning trace directory %s: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Store defines the file discovery operations used by the session layer.
type Store interface {
	List() ([]*models.TraceFile, error)
	Files() []*models.TraceFile
	Get(id string) (*models.TraceFile, error)
}

// FileID derives a file's identifier from its name: the CRC-32 (IEEE) of the
// UTF-8 name in lowercase hex. Files with equal names share an ID.
func FileID(name string) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(name))), 16)
}

// listing is an immutable scan result.
type listing struct {
	files []*models.TraceFile
	byID  map[string]*models.TraceFile
}

func newListing(files []*models.TraceFile) *listing {
	l := &listing{
		files: files,
		byID:  make(map[string]*models.TraceFile, len(files)),
	}
	for _, f := range files {
		// First file wins on colliding names
		if _, ok := l.byID[f.ID]; !ok {
			l.byID[f.ID] = f
		}
	}
	return l
}

// Registry scans a directory for trace files and holds the latest listing.
type Registry struct {
	dir    string
	ext    string
	scanMu sync.Mutex
	cur    atomic.Pointer[listing]
	logger *log.Logger
}

// NewRegistry creates a registry for files ending in ext inside dir.
// No scan happens until List is called.
func NewRegistry(dir, ext string) *Registry {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	r := &Registry{
		dir:    dir,
		ext:    ext,
		logger: logging.New("registry"),
	}
	r.cur.Store(newListing(nil))
	return r
}

// Dir returns the absolute trace directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Matches reports whether a path has the trace file extension.
func (r *Registry) Matches(path string) bool {
	return strings.HasSuffix(filepath.Base(path), r.ext)
}

// List rescans the directory, replaces the held listing and returns it.
// On failure it returns a *DiscoveryError and leaves the previous listing intact.
func (r *Registry) List() ([]*models.TraceFile, error) {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.logger.Errorf("Scan of %s failed: %v", r.dir, err)
		return nil, &DiscoveryError{Dir: r.dir, Err: err}
	}

	files := make([]*models.TraceFile, 0, len(entries))
	for _, entry := range entries {
		if !r.Matches(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		// Stat follows symlinks
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warnf("Skipping %s: %v", entry.Name(), err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, &models.TraceFile{
			ID:         FileID(entry.Name()),
			Name:       entry.Name(),
			Path:       path,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	r.cur.Store(newListing(files))
	r.logger.Infof("Loaded %d trace files from %s", len(files), r.dir)

	return append([]*models.TraceFile{}, files...), nil
}

// Files returns the held listing without rescanning.
func (r *Registry) Files() []*models.TraceFile {
	return append([]*models.TraceFile{}, r.cur.Load().files...)
}

// Get returns the file with the given ID from the held listing.
func (r *Registry) Get(id string) (*models.TraceFile, error) {
	f, ok := r.cur.Load().byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}
