// Package cache memoizes per-file extraction results in BadgerDB.
// Extraction is a pure function of file content, so entries are keyed
// by repository-relative path plus a content hash: an edited file
// misses, a reverted file hits again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/codescribe/internal/model"
)

const keyPrefix = "p:"

// Entry is one cached extraction result.
type Entry struct {
	Components []*model.Component `json:"components"`
	Edges      []*model.CallEdge  `json:"edges"`
}

// Store is a BadgerDB-backed parse cache. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the cache at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open parse cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached entry for the file content, if present. A
// corrupt value counts as a miss.
func (s *Store) Get(relPath string, content []byte) (*Entry, bool) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(relPath, content))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, false
	}
	return &entry, true
}

// Put stores the extraction result for the file content, replacing any
// entry for an older content hash of the same path.
func (s *Store) Put(relPath string, content []byte, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	k := key(relPath, content)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.dropStale(txn, relPath, k); err != nil {
			return err
		}
		return txn.Set(k, data)
	})
}

// dropStale removes entries for the same path under a different hash.
func (s *Store) dropStale(txn *badger.Txn, relPath string, keep []byte) error {
	prefix := []byte(keyPrefix + relPath + "@")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var stale [][]byte
	for it.Seek(prefix); it.Valid(); it.Next() {
		k := it.Item().KeyCopy(nil)
		if string(k) != string(keep) {
			stale = append(stale, k)
		}
	}
	for _, k := range stale {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of cached files.
func (s *Store) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(relPath string, content []byte) []byte {
	sum := sha256.Sum256(content)
	return []byte(keyPrefix + relPath + "@" + hex.EncodeToString(sum[:]))
}
