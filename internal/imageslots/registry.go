package imageslots

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const blobScheme = "blob:"

// IsBlobURL reports whether url is a locally created preview.
func IsBlobURL(url string) bool {
	return strings.HasPrefix(url, blobScheme)
}

// PreviewRegistry creates and releases local preview URLs for files.
type PreviewRegistry interface {
	Create(f *File) string
	Revoke(url string)
}

// MemoryRegistry keeps previews in memory. Safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.Mutex
	files map[string]*File
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{files: make(map[string]*File)}
}

func (r *MemoryRegistry) Create(f *File) string {
	url := blobScheme + uuid.NewString()
	r.mu.Lock()
	r.files[url] = f
	r.mu.Unlock()
	return url
}

// Revoke releases url. Unknown, already released and non-blob URLs are ignored.
func (r *MemoryRegistry) Revoke(url string) {
	if !IsBlobURL(url) {
		return
	}
	r.mu.Lock()
	delete(r.files, url)
	r.mu.Unlock()
}

// Lookup returns the file behind a live preview URL.
func (r *MemoryRegistry) Lookup(url string) (*File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[url]
	return f, ok
}

// Len returns the number of live previews.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}
