// Package logstore provides persistent storage for decoded transaction logs.
//
// Logs are stored append-only: each stored log gets a monotonically
// increasing sequence number, and a secondary index maps transaction
// signatures to sequence numbers. Stored records are the JSON snapshot
// projection, zstd-compressed and prefixed with a BLAKE3 digest that is
// verified on every read.
package logstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/txlog"
)

var (
	// ErrLogNotFound is returned when no log exists for a sequence number
	// or signature.
	ErrLogNotFound = errors.New("log not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("logstore closed")

	// ErrCorrupted is returned when a stored record fails its digest check.
	ErrCorrupted = errors.New("log record corrupted")
)

// Bucket names.
var (
	// bucketLogs stores compressed log records keyed by sequence number.
	bucketLogs = []byte("logs")

	// bucketSigIndex maps transaction signatures to sequence numbers.
	bucketSigIndex = []byte("sig_index")

	// bucketMetadata stores store-level metadata.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var (
	keyNextSeq = []byte("next_seq")
)

// digestSize is the length of the BLAKE3 digest prefixing each record.
const digestSize = 32

// Config holds logstore configuration.
type Config struct {
	// Path is the database file path.
	Path string

	// NoSync disables fsync after each write. Faster but less durable.
	NoSync bool

	// ReadOnly opens the database read-only.
	ReadOnly bool

	// CompressionLevel selects the zstd level for stored records.
	CompressionLevel zstd.EncoderLevel
}

// DefaultConfig returns the default logstore configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		CompressionLevel: zstd.SpeedDefault,
	}
}

// Store is the bbolt-backed log store.
type Store struct {
	db     *bolt.DB
	config Config

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu      sync.Mutex
	nextSeq uint64
	closed  bool
}

// Open creates or opens a log store at the configured path.
func Open(config Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{
		Timeout:  5 * time.Second,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	level := config.CompressionLevel
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	s := &Store{db: db, config: config, enc: enc, dec: dec}

	if !config.ReadOnly {
		if err := s.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}
	if err := s.loadNextSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load sequence: %w", err)
	}
	return s, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLogs, bucketSigIndex, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) loadNextSeq() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil
		}
		if v := meta.Get(keyNextSeq); len(v) == 8 {
			s.nextSeq = binary.BigEndian.Uint64(v)
		}
		return nil
	})
}

// encodeSeqKey encodes a sequence number as a big-endian key, so bolt's
// byte-ordered cursor walks logs in append order.
func encodeSeqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// encodeRecord compresses the snapshot JSON and prefixes its digest.
func (s *Store) encodeRecord(snap *txlog.TransactionSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode log: %w", err)
	}
	compressed := s.enc.EncodeAll(raw, nil)

	record := make([]byte, digestSize+len(compressed))
	digest := blake3.Sum256(compressed)
	copy(record[:digestSize], digest[:])
	copy(record[digestSize:], compressed)
	return record, nil
}

// decodeRecord verifies the digest and decompresses the snapshot.
func (s *Store) decodeRecord(record []byte) (*txlog.TransactionSnapshot, error) {
	if len(record) < digestSize {
		return nil, ErrCorrupted
	}
	digest := blake3.Sum256(record[digestSize:])
	if !bytes.Equal(digest[:], record[:digestSize]) {
		return nil, ErrCorrupted
	}

	raw, err := s.dec.DecodeAll(record[digestSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	var snap txlog.TransactionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &snap, nil
}

// Append stores a transaction log and returns its sequence number. The log's
// signature is indexed; appending a second log with the same signature
// repoints the index at the newer record.
func (s *Store) Append(log *txlog.TransactionLog) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	record, err := s.encodeRecord(txlog.Snapshot(log))
	if err != nil {
		return 0, err
	}

	seq := s.nextSeq
	err = s.db.Update(func(tx *bolt.Tx) error {
		seqKey := encodeSeqKey(seq)
		if err := tx.Bucket(bucketLogs).Put(seqKey, record); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSigIndex).Put(log.Signature.Bytes(), seqKey); err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Put(keyNextSeq, encodeSeqKey(seq+1))
	})
	if err != nil {
		return 0, err
	}
	s.nextSeq = seq + 1
	return seq, nil
}

// Get retrieves a stored log by sequence number.
func (s *Store) Get(seq uint64) (*txlog.TransactionSnapshot, error) {
	record, err := s.getRecord(func(tx *bolt.Tx) []byte {
		b := tx.Bucket(bucketLogs)
		if b == nil {
			return nil
		}
		return b.Get(encodeSeqKey(seq))
	})
	if err != nil {
		return nil, err
	}
	return s.decodeRecord(record)
}

// GetBySignature retrieves the most recently appended log for a signature.
func (s *Store) GetBySignature(sig types.Signature) (*txlog.TransactionSnapshot, error) {
	record, err := s.getRecord(func(tx *bolt.Tx) []byte {
		idx, logs := tx.Bucket(bucketSigIndex), tx.Bucket(bucketLogs)
		if idx == nil || logs == nil {
			return nil
		}
		seqKey := idx.Get(sig.Bytes())
		if seqKey == nil {
			return nil
		}
		return logs.Get(seqKey)
	})
	if err != nil {
		return nil, err
	}
	return s.decodeRecord(record)
}

// getRecord runs a read transaction and copies out the located record.
func (s *Store) getRecord(locate func(tx *bolt.Tx) []byte) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	var record []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := locate(tx)
		if v == nil {
			return ErrLogNotFound
		}
		record = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Has reports whether a log is stored for the signature.
func (s *Store) Has(sig types.Signature) bool {
	exists := false
	s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketSigIndex); b != nil {
			exists = b.Get(sig.Bytes()) != nil
		}
		return nil
	})
	return exists
}

// Count returns the number of stored logs.
func (s *Store) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

// Iterate walks stored logs in append order starting at startSeq. Returning
// an error from the callback stops iteration.
func (s *Store) Iterate(startSeq uint64, fn func(seq uint64, snap *txlog.TransactionSnapshot) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLogs)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(encodeSeqKey(startSeq)); k != nil; k, v = c.Next() {
			snap, err := s.decodeRecord(v)
			if err != nil {
				return err
			}
			if err := fn(binary.BigEndian.Uint64(k), snap); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats summarizes the store.
type Stats struct {
	// LogCount is the number of stored logs.
	LogCount uint64

	// DatabaseSize is the database file size in bytes.
	DatabaseSize int64
}

// GetStats returns store statistics.
func (s *Store) GetStats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	stats := &Stats{LogCount: s.nextSeq}
	if info, err := os.Stat(s.config.Path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// Sync forces a sync to disk.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Sync()
}

// Close shuts down the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
