package ytapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"ytune/internal/domain"
)

// Bucket names
var (
	bucketVideos    = []byte("videos")
	bucketDurations = []byte("durations")
)

// MetaCache persists API responses in a bolt database so repeated browse and
// prefetch sessions do not re-hit the network for metadata that cannot
// change. Hot keys are promoted into an in-memory map.
type MetaCache struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// NewMetaCache opens (or creates) meta.db under the cache root. An empty
// cacheDir yields a memory-only cache.
func NewMetaCache(cacheDir string) (*MetaCache, error) {
	if cacheDir == "" {
		return &MetaCache{cache: make(map[string][]byte)}, nil
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(cacheDir, "meta.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open meta db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketVideos, bucketDurations} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MetaCache{db: db, cache: make(map[string][]byte)}, nil
}

func (m *MetaCache) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *MetaCache) get(bucket []byte, key string, dest any) bool {
	if m == nil {
		return false
	}
	cacheKey := string(bucket) + ":" + key

	m.mu.RLock()
	if data, ok := m.cache[cacheKey]; ok {
		m.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	m.mu.RUnlock()

	if m.db == nil {
		return false
	}

	var data []byte
	m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}

	m.mu.Lock()
	m.cache[cacheKey] = data
	m.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (m *MetaCache) set(bucket []byte, key string, value any) {
	if m == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.cache[string(bucket)+":"+key] = data
	m.mu.Unlock()

	if m.db == nil {
		return
	}
	m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// GetVideo returns a cached video record.
func (m *MetaCache) GetVideo(id string) (*domain.Track, bool) {
	var t domain.Track
	if !m.get(bucketVideos, id, &t) {
		return nil, false
	}
	return &t, true
}

// PutVideo caches a video record.
func (m *MetaCache) PutVideo(t *domain.Track) {
	if t == nil || t.ID == "" {
		return
	}
	m.set(bucketVideos, t.ID, t)
}

// GetDuration returns a cached duration. The bool reports cache presence;
// a present nil duration means the API answered without one.
func (m *MetaCache) GetDuration(id string) (*int, bool) {
	var d *int
	if !m.get(bucketDurations, id, &d) {
		return nil, false
	}
	return d, true
}

// PutDuration caches a duration, including a nil "API had no answer" result.
func (m *MetaCache) PutDuration(id string, d *int) {
	m.set(bucketDurations, id, d)
}
