// Package accounts stores account state for transaction tracing.
//
// The store holds the current lamports, data, and owner of every account the
// tracer knows about. Around each traced execution the harness captures
// before/after views of the referenced accounts; both implementations here
// satisfy the state reader used by those captures, so a trace can diff
// directly against live store contents.
//
// Two implementations are provided: a BadgerDB-backed store for persistent
// operation and a map-backed store for tests and ephemeral runs.
package accounts

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/statediff"
)

var (
	// ErrAccountNotFound is returned when an account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrInvalidRecord is returned when a stored record is malformed.
	ErrInvalidRecord = errors.New("invalid account record")
)

// MaxDataSize is the largest account data payload the store accepts.
const MaxDataSize = 10 * 1024 * 1024

// Account is one account's stored state.
type Account struct {
	// Lamports is the account balance.
	Lamports uint64

	// Data is the account's data payload. Program accounts carry bytecode
	// here; the tracer only needs its length.
	Data []byte

	// Owner is the program that owns the account.
	Owner types.Pubkey

	// Executable marks program accounts.
	Executable bool
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		Lamports:   a.Lamports,
		Data:       data,
		Owner:      a.Owner,
		Executable: a.Executable,
	}
}

// IsZero reports whether the account has no lamports and no data. Zero
// accounts are deleted from storage rather than stored.
func (a *Account) IsZero() bool {
	return a.Lamports == 0 && len(a.Data) == 0
}

// State projects the account into the diffable form used by captures.
func (a *Account) State() statediff.AccountState {
	return statediff.AccountState{
		Lamports: a.Lamports,
		DataLen:  uint64(len(a.Data)),
		Owner:    a.Owner,
	}
}

// serializedSize is the record size on disk.
// Format: lamports (8) + data_len (8) + data + owner (32) + executable (1).
func (a *Account) serializedSize() int {
	return 8 + 8 + len(a.Data) + 32 + 1
}

// Serialize encodes the account for storage.
func (a *Account) Serialize() []byte {
	buf := make([]byte, a.serializedSize())
	binary.LittleEndian.PutUint64(buf[0:8], a.Lamports)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(a.Data)))
	offset := 16 + copy(buf[16:], a.Data)
	offset += copy(buf[offset:], a.Owner[:])
	if a.Executable {
		buf[offset] = 1
	}
	return buf
}

// DeserializeAccount decodes an account record.
func DeserializeAccount(data []byte) (*Account, error) {
	const fixed = 8 + 8 + 32 + 1
	if len(data) < fixed {
		return nil, ErrInvalidRecord
	}

	lamports := binary.LittleEndian.Uint64(data[0:8])
	dataLen := binary.LittleEndian.Uint64(data[8:16])
	if dataLen > MaxDataSize || uint64(len(data)-fixed) < dataLen {
		return nil, ErrInvalidRecord
	}

	payload := make([]byte, dataLen)
	offset := 16 + copy(payload, data[16:16+dataLen])

	var owner types.Pubkey
	offset += copy(owner[:], data[offset:offset+32])

	return &Account{
		Lamports:   lamports,
		Data:       payload,
		Owner:      owner,
		Executable: data[offset] != 0,
	}, nil
}

// Store is the account store interface. Implementations must be safe for
// concurrent reads; they additionally satisfy the account reader consumed by
// state captures.
type Store interface {
	statediff.AccountReader

	// Get retrieves an account. Returns ErrAccountNotFound when absent.
	Get(pubkey types.Pubkey) (*Account, error)

	// Put stores an account. Zero accounts are deleted instead.
	Put(pubkey types.Pubkey, account *Account) error

	// Delete removes an account. Absent accounts are not an error.
	Delete(pubkey types.Pubkey) error

	// Has reports whether an account exists.
	Has(pubkey types.Pubkey) (bool, error)

	// Count returns the number of stored accounts.
	Count() (uint64, error)

	// Close releases the store.
	Close() error
}

// MemoryStore is a map-backed Store for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[types.Pubkey]*Account
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[types.Pubkey]*Account)}
}

// Get retrieves an account.
func (m *MemoryStore) Get(pubkey types.Pubkey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	acc, ok := m.accounts[pubkey]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// Put stores an account, deleting it when zero.
func (m *MemoryStore) Put(pubkey types.Pubkey, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if account.IsZero() {
		delete(m.accounts, pubkey)
		return nil
	}
	m.accounts[pubkey] = account.Clone()
	return nil
}

// Delete removes an account.
func (m *MemoryStore) Delete(pubkey types.Pubkey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.accounts, pubkey)
	return nil
}

// Has reports whether an account exists.
func (m *MemoryStore) Has(pubkey types.Pubkey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.accounts[pubkey]
	return ok, nil
}

// Count returns the number of stored accounts.
func (m *MemoryStore) Count() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return uint64(len(m.accounts)), nil
}

// ReadAccount satisfies the capture reader. Closed or absent both report
// not-found, so captures degrade to zero state instead of failing.
func (m *MemoryStore) ReadAccount(key types.Pubkey) (statediff.AccountState, bool) {
	acc, err := m.Get(key)
	if err != nil {
		return statediff.AccountState{}, false
	}
	return acc.State(), true
}

// Close closes the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.accounts = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
