// Package statediff captures and compares per-account observable state
// (lamports, data length, owner) around transaction execution.
//
// Capture reads the live state of every account a transaction references;
// Diff pairs a pre- and post-execution capture into snapshots. The diff is
// taken over the union of both key sets so account creation shows up as a
// snapshot with a zeroed before-state rather than being dropped.
package statediff

import "github.com/fortiblox/svmtrace/internal/types"

// AccountState is the observable state of one account at a point in time.
type AccountState struct {
	Lamports uint64
	DataLen  uint64
	Owner    types.Pubkey
}

// AccountReader supplies live account state. Implementations report
// ok=false for accounts that do not exist.
type AccountReader interface {
	ReadAccount(key types.Pubkey) (AccountState, bool)
}

// ReaderFunc adapts a function to the AccountReader interface.
type ReaderFunc func(key types.Pubkey) (AccountState, bool)

// ReadAccount implements AccountReader.
func (f ReaderFunc) ReadAccount(key types.Pubkey) (AccountState, bool) {
	return f(key)
}

// Snapshot is the before/after pair for one account.
type Snapshot struct {
	LamportsBefore uint64
	LamportsAfter  uint64
	DataLenBefore  uint64
	DataLenAfter   uint64
	Owner          types.Pubkey
}

// Capture reads the current state of every key. Keys that do not exist
// yield a zero state with the default owner; capture never fails.
func Capture(keys []types.Pubkey, reader AccountReader) map[types.Pubkey]AccountState {
	states := make(map[types.Pubkey]AccountState, len(keys))
	for _, key := range keys {
		if state, ok := reader.ReadAccount(key); ok {
			states[key] = state
		} else {
			states[key] = AccountState{Owner: types.DefaultOwner}
		}
	}
	return states
}

// Diff pairs pre- and post-execution captures into per-account snapshots.
//
// Keys present in both captures pair directly. Keys present only in post
// (accounts created by the transaction) synthesize a zero before-state.
// Keys present only in pre keep their before-state with a zero after-state.
func Diff(pre, post map[types.Pubkey]AccountState) map[types.Pubkey]Snapshot {
	snapshots := make(map[types.Pubkey]Snapshot, len(pre))

	for key, before := range pre {
		after := post[key]
		snapshots[key] = Snapshot{
			LamportsBefore: before.Lamports,
			LamportsAfter:  after.Lamports,
			DataLenBefore:  before.DataLen,
			DataLenAfter:   after.DataLen,
			Owner:          before.Owner,
		}
	}

	for key, after := range post {
		if _, ok := snapshots[key]; ok {
			continue
		}
		snapshots[key] = Snapshot{
			LamportsAfter: after.Lamports,
			DataLenAfter:  after.DataLen,
			Owner:         after.Owner,
		}
	}

	return snapshots
}

// LamportsChange returns the signed lamports delta of a snapshot.
func (s Snapshot) LamportsChange() int64 {
	return int64(s.LamportsAfter) - int64(s.LamportsBefore)
}

// DataLenChange returns the signed data-length delta of a snapshot.
func (s Snapshot) DataLenChange() int64 {
	return int64(s.DataLenAfter) - int64(s.DataLenBefore)
}
