package decoder

import (
	"sync"
)

// StringIntern provides thread-safe string interning.
// Event type names and attribute keys repeat for every record of a trace,
// so decoders share one canonical copy of each.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 256),
	}
}

// MaxInternPoolSize limits the intern pool to prevent unbounded memory growth.
// Past this limit strings are returned without being stored.
const MaxInternPoolSize = 100000

// Intern returns the canonical version of the string.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		si.mu.RUnlock()
		return s
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()
	// Double-check after acquiring write lock
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// InternBytes interns a byte slice. It does not allocate when the string is already pooled.
func (si *StringIntern) InternBytes(b []byte) string {
	si.mu.RLock()
	pooled, ok := si.pool[string(b)]
	si.mu.RUnlock()
	if ok {
		return pooled
	}
	return si.Intern(string(b))
}
