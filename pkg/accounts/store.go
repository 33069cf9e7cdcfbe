package accounts

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/statediff"
)

// Key prefixes. Prefixes allow efficient iteration over one record type.
var (
	// prefixAccount precedes the 32-byte pubkey of each account record.
	prefixAccount = []byte{0x01}
)

// BadgerConfig configures the BadgerDB-backed store.
type BadgerConfig struct {
	// Path is the database directory.
	Path string

	// InMemory runs the database without touching disk (for testing).
	InMemory bool

	// SyncWrites syncs every write to disk. False trades crash safety for
	// throughput.
	SyncWrites bool

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// ValueLogFileSize is the size of each value log file.
	ValueLogFileSize int64

	// Logger is an optional badger logger. Nil disables badger's logging.
	Logger badger.Logger
}

// DefaultBadgerConfig returns the default configuration.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:             path,
		SyncWrites:       false,
		NumCompactors:    4,
		ValueLogFileSize: 256 << 20,
	}
}

// BadgerStore is the BadgerDB-backed account store.
//
// Badger's LSM/value-log split suits account records well: keys are fixed
// 33 bytes while values range from empty wallets to multi-megabyte program
// accounts. Account count is cached in memory and maintained across writes.
type BadgerStore struct {
	db     *badger.DB
	count  atomic.Uint64
	mu     sync.Mutex
	closed atomic.Bool
}

// OpenBadger opens or creates a store at the configured path.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	// Badger rejects a directory in disk-less mode.
	dir := cfg.Path
	if cfg.InMemory {
		dir = ""
	}
	if cfg.NumCompactors == 0 {
		cfg.NumCompactors = 4
	}
	if cfg.ValueLogFileSize == 0 {
		cfg.ValueLogFileSize = 256 << 20
	}
	opts := badger.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumCompactors(cfg.NumCompactors).
		WithValueLogFileSize(cfg.ValueLogFileSize).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db}
	if err := s.loadCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	return s, nil
}

// loadCount counts existing account records on open.
func (s *BadgerStore) loadCount() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixAccount
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var n uint64
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		s.count.Store(n)
		return nil
	})
}

// accountKey returns the storage key for a pubkey.
func accountKey(pubkey types.Pubkey) []byte {
	key := make([]byte, 1+32)
	key[0] = prefixAccount[0]
	copy(key[1:], pubkey[:])
	return key
}

// Get retrieves an account by public key.
func (s *BadgerStore) Get(pubkey types.Pubkey) (*Account, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var account *Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(pubkey))
		if err == badger.ErrKeyNotFound {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			account, err = DeserializeAccount(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Put stores an account. Zero accounts are deleted instead of stored.
func (s *BadgerStore) Put(pubkey types.Pubkey, account *Account) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.has(pubkey)
	if err != nil {
		return err
	}

	if account.IsZero() {
		if !exists {
			return nil
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(accountKey(pubkey))
		})
		if err != nil {
			return err
		}
		s.count.Add(^uint64(0))
		return nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(accountKey(pubkey), account.Serialize())
	})
	if err != nil {
		return err
	}
	if !exists {
		s.count.Add(1)
	}
	return nil
}

// Delete removes an account.
func (s *BadgerStore) Delete(pubkey types.Pubkey) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.has(pubkey)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(accountKey(pubkey))
	})
	if err != nil {
		return err
	}
	s.count.Add(^uint64(0))
	return nil
}

// Has reports whether an account exists.
func (s *BadgerStore) Has(pubkey types.Pubkey) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	return s.has(pubkey)
}

func (s *BadgerStore) has(pubkey types.Pubkey) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(pubkey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// Count returns the number of stored accounts.
func (s *BadgerStore) Count() (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return s.count.Load(), nil
}

// ReadAccount satisfies the capture reader: an absent account (or any read
// failure) reports not-found, so captures fall back to zero state.
func (s *BadgerStore) ReadAccount(key types.Pubkey) (statediff.AccountState, bool) {
	acc, err := s.Get(key)
	if err != nil {
		return statediff.AccountState{}, false
	}
	return acc.State(), true
}

// Iterate walks all accounts in pubkey order. Returning an error from the
// callback stops iteration.
func (s *BadgerStore) Iterate(fn func(pubkey types.Pubkey, account *Account) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixAccount
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != 33 {
				continue
			}
			var pubkey types.Pubkey
			copy(pubkey[:], key[1:])

			err := item.Value(func(val []byte) error {
				account, err := DeserializeAccount(val)
				if err != nil {
					return err
				}
				return fn(pubkey, account)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyDiff writes a set of post-execution states back to the store. Entries
// whose after-state is zero lamports and zero data length are deleted.
func (s *BadgerStore) ApplyDiff(diff map[types.Pubkey]statediff.Snapshot) error {
	if s.closed.Load() {
		return ErrClosed
	}

	for key, snap := range diff {
		if snap.LamportsAfter == 0 && snap.DataLenAfter == 0 {
			if err := s.Delete(key); err != nil {
				return err
			}
			continue
		}
		acc, err := s.Get(key)
		if err == ErrAccountNotFound {
			acc = &Account{Owner: snap.Owner}
		} else if err != nil {
			return err
		}
		acc.Lamports = snap.LamportsAfter
		if uint64(len(acc.Data)) != snap.DataLenAfter {
			data := make([]byte, snap.DataLenAfter)
			copy(data, acc.Data)
			acc.Data = data
		}
		if err := s.Put(key, acc); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes pending writes to disk.
func (s *BadgerStore) Sync() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Sync()
}

// RunGC reclaims value-log space. Call periodically on long-lived stores.
func (s *BadgerStore) RunGC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.RunValueLogGC(0.5)
}

// Close closes the store.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
