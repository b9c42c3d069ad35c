package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/appshelf/internal/domain"
)

// Bucket names
var (
	bucketPackages = []byte("packages")
	bucketJobs     = []byte("jobs")
)

const dbFile = "appshelfd.db"

// Record is the daemon's note of an entry it installed
type Record struct {
	AppName     string    `json:"appName"`
	PackageName string    `json:"packageName"`
	PackageURI  string    `json:"packageURI"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installedAt"`
}

// PackageStore persists install records and daemon jobs in BoltDB.
type PackageStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens the store under dir. An empty dir gives a memory-only store.
func Open(dir string) (*PackageStore, error) {
	if dir == "" {
		// Memory-only mode (no persistence)
		return &PackageStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(dir, dbFile), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPackages, bucketJobs} {
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

	return &PackageStore{db: db, cache: make(map[string][]byte)}, nil
}

// Close closes the database
func (s *PackageStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Persistent reports whether the store writes to disk
func (s *PackageStore) Persistent() bool {
	return s.db != nil
}

// === Generic helpers ===

func cacheKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

func (s *PackageStore) get(bucket []byte, key string, dest any) bool {
	ck := cacheKey(bucket, key)

	s.mu.RLock()
	if data, ok := s.cache[ck]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[ck] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *PackageStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[cacheKey(bucket, key)] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *PackageStore) delete(bucket []byte, key string) error {
	s.mu.Lock()
	delete(s.cache, cacheKey(bucket, key))
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// values returns every raw value in bucket, ordered by key
func (s *PackageStore) values(bucket []byte) ([][]byte, error) {
	if s.db == nil {
		prefix := cacheKey(bucket, "")
		s.mu.RLock()
		keys := make([]string, 0, len(s.cache))
		for k := range s.cache {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([][]byte, len(keys))
		for i, k := range keys {
			out[i] = s.cache[k]
		}
		s.mu.RUnlock()
		return out, nil
	}

	var out [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			data := make([]byte, len(v))
			copy(data, v)
			out = append(out, data)
			return nil
		})
	})
	return out, err
}

func (s *PackageStore) clear(bucket []byte) error {
	s.mu.Lock()
	prefix := cacheKey(bucket, "")
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Packages ===

// GetRecord returns the install record of an app
func (s *PackageStore) GetRecord(appName string) (Record, bool) {
	var r Record
	ok := s.get(bucketPackages, appName, &r)
	return r, ok
}

// SaveRecord stores the install record of an app
func (s *PackageStore) SaveRecord(r Record) error {
	if r.AppName == "" {
		return fmt.Errorf("save record: empty app name")
	}
	return s.set(bucketPackages, r.AppName, r)
}

// DeleteRecord forgets an app's install record
func (s *PackageStore) DeleteRecord(appName string) error {
	return s.delete(bucketPackages, appName)
}

// Records returns every install record ordered by app name
func (s *PackageStore) Records() ([]Record, error) {
	raw, err := s.values(bucketPackages)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, data := range raw {
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// === Jobs ===

// GetJob returns a job by id
func (s *PackageStore) GetJob(id string) (domain.Job, bool) {
	var j domain.Job
	ok := s.get(bucketJobs, id, &j)
	return j, ok
}

// SaveJob stores a job
func (s *PackageStore) SaveJob(j domain.Job) error {
	if j.ID == "" {
		return fmt.Errorf("save job: empty id")
	}
	return s.set(bucketJobs, j.ID, j)
}

// DeleteJob removes a job
func (s *PackageStore) DeleteJob(id string) error {
	return s.delete(bucketJobs, id)
}

// Jobs returns every stored job, oldest first
func (s *PackageStore) Jobs() ([]domain.Job, error) {
	raw, err := s.values(bucketJobs)
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(raw))
	for _, data := range raw {
		var j domain.Job
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, j)
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs, nil
}

// ClearJobs removes every job. Jobs left by a previous daemon run are stale.
func (s *PackageStore) ClearJobs() error {
	return s.clear(bucketJobs)
}
