package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	noteBucket       = "notes"
	valueHeaderBytes = 16 // expiry unix + processed-at unix
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	noteTTL         time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(noteBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		noteTTL:         opts.NoteTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LookupNote returns the note previously produced from the given source URL,
// if its record has not expired.
func (b *boltStore) LookupNote(sourceURL string) (NoteRef, bool, error) {
	if b == nil || b.db == nil {
		return NoteRef{}, false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return NoteRef{}, false, err
	}

	var (
		ref   NoteRef
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(noteBucket))
		if bucket == nil {
			return fmt.Errorf("note bucket missing")
		}

		key := []byte(sourceURL)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		decoded, expiry, ok := decodeNote(value)
		if !ok || !expiry.After(time.Now()) {
			return bucket.Delete(key)
		}

		ref = decoded
		found = true
		return nil
	})
	return ref, found, err
}

// RecordNote stores the note produced from the given source URL.
func (b *boltStore) RecordNote(sourceURL string, ref NoteRef) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}
	if ref.ProcessedAt.IsZero() {
		ref.ProcessedAt = now
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(noteBucket))
		if bucket == nil {
			return fmt.Errorf("note bucket missing")
		}
		return bucket.Put([]byte(sourceURL), encodeNote(ref, now.Add(b.noteTTL)))
	})
}

// maybeCleanupExpired removes expired note records on a fixed cadence to
// avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(noteBucket))
		if bucket == nil {
			return fmt.Errorf("note bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			_, expiry, ok := decodeNote(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// encodeNote packs expiry and processed-at timestamps ahead of the filename.
func encodeNote(ref NoteRef, expiry time.Time) []byte {
	buf := make([]byte, valueHeaderBytes+len(ref.Filename))
	binary.BigEndian.PutUint64(buf[0:8], uint64(expiry.Unix()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(ref.ProcessedAt.Unix()))
	copy(buf[valueHeaderBytes:], ref.Filename)
	return buf
}

// decodeNote unpacks a stored record.
func decodeNote(value []byte) (NoteRef, time.Time, bool) {
	if len(value) < valueHeaderBytes {
		return NoteRef{}, time.Time{}, false
	}
	expiryUnix := int64(binary.BigEndian.Uint64(value[0:8]))
	processedUnix := int64(binary.BigEndian.Uint64(value[8:16]))
	if expiryUnix <= 0 {
		return NoteRef{}, time.Time{}, false
	}
	ref := NoteRef{
		Filename:    string(value[valueHeaderBytes:]),
		ProcessedAt: time.Unix(processedUnix, 0),
	}
	return ref, time.Unix(expiryUnix, 0), true
}
