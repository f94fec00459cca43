package annotation

import (
	"bytes"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfmark/failure"
)

// Asset owns the raw bytes of a placed image.
type Asset struct {
	ID     string `json:"id"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

var formatMIME = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// NewAsset sniffs data and records its natural size. The id is derived from
// the content so the same picture is only stored once.
func NewAsset(data []byte) (*Asset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, failure.New(failure.InvalidInput, "annotation.NewAsset", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, failure.Errorf(failure.InvalidInput, "annotation.NewAsset", "image is %dx%d", cfg.Width, cfg.Height)
	}
	sum := blake2b.Sum256(data)
	return &Asset{
		ID:     hex.EncodeToString(sum[:16]),
		MIME:   formatMIME[format],
		Width:  cfg.Width,
		Height: cfg.Height,
		Data:   append([]byte(nil), data...),
	}, nil
}

// AssetStore holds assets by id.
type AssetStore struct {
	mu sync.RWMutex
	m  map[string]*Asset
}

func NewAssetStore() *AssetStore { return &AssetStore{m: make(map[string]*Asset)} }

// Put stores a (returning the existing entry when the id is already known).
func (s *AssetStore) Put(a *Asset) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.m[a.ID]; ok {
		return old
	}
	s.m[a.ID] = a
	return a
}

// Add sniffs and stores an image.
func (s *AssetStore) Add(data []byte) (*Asset, error) {
	a, err := NewAsset(data)
	if err != nil {
		return nil, err
	}
	return s.Put(a), nil
}

// Get returns the asset or an AssetNotFound error.
func (s *AssetStore) Get(id string) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.m[id]
	if !ok {
		return nil, failure.Errorf(failure.AssetNotFound, "annotation.AssetStore", "asset %q", id)
	}
	return a, nil
}

func (s *AssetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// IDs returns the stored ids in sorted order.
func (s *AssetStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replace swaps the whole content in one step.
func (s *AssetStore) Replace(assets []*Asset) {
	m := make(map[string]*Asset, len(assets))
	for _, a := range assets {
		m[a.ID] = a
	}
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
}

func (s *AssetStore) Reset() { s.Replace(nil) }

// Prune drops assets no annotation in keep references.
func (s *AssetStore) Prune(keep []Annotation) int {
	used := make(map[string]bool)
	for _, a := range keep {
		if img, ok := a.(*Image); ok {
			used[img.AssetID] = true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.m {
		if !used[id] {
			delete(s.m, id)
			n++
		}
	}
	return n
}
