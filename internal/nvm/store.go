package nvm

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	bolt "go.etcd.io/bbolt"
)

// MemStore is an in-memory Store, used by tests and by boards without
// persistent storage (capacity 0 makes SAVE report NVM_UNAVAILABLE).
type MemStore struct {
	capacity int
	data     []byte
}

func NewMemStore(capacity int) *MemStore {
	return &MemStore{capacity: capacity}
}

func (s *MemStore) Capacity() int { return s.capacity }

func (s *MemStore) Read() ([]byte, error) {
	if s.data == nil {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *MemStore) Write(data []byte) error {
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

// FileStore keeps the blob in a single file, replaced atomically on write.
type FileStore struct {
	path     string
	capacity int
}

func NewFileStore(path string, capacity int) *FileStore {
	return &FileStore{path: path, capacity: capacity}
}

func (s *FileStore) Capacity() int { return s.capacity }

func (s *FileStore) Read() ([]byte, error) {
	return os.ReadFile(s.path)
}

func (s *FileStore) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(s.path, bytes.NewReader(data))
}

const (
	boltBucket = "nvm"
	boltKey    = "blob"
)

// BoltStore keeps the blob in a bbolt database. The database is opened per
// operation so a crash between saves never leaves a dangling lock.
type BoltStore struct {
	path     string
	capacity int
}

func NewBoltStore(path string, capacity int) *BoltStore {
	return &BoltStore{path: path, capacity: capacity}
}

func (s *BoltStore) Capacity() int { return s.capacity }

func (s *BoltStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, err
	}
	return bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 1 * time.Minute})
}

func (s *BoltStore) Read() ([]byte, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(boltKey))
		if v == nil {
			return os.ErrNotExist
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BoltStore) Write(data []byte) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(boltKey), data)
	})
}

// LoadFallbackFile reads settings from a plain JSON file, the escape hatch
// for seeding a device whose store holds no valid blob yet.
func LoadFallbackFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
