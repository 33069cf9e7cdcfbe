// Package txlog assembles decoded transaction logs.
//
// One TransactionLog is built per executed transaction from the compiled
// message, the execution metadata reported by the VM harness, and (optionally)
// pre/post account-state captures. Assembly is pure and synchronous: it
// produces a value, touches no I/O, and never fails — undecodable
// instructions appear in the log with their raw bytes intact.
package txlog

import (
	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/decoder"
	"github.com/fortiblox/svmtrace/pkg/statediff"
)

// Status is the transaction-level execution outcome.
type Status struct {
	// Success is true when the harness reported successful execution.
	Success bool

	// Reason carries the harness's failure description verbatim when
	// Success is false.
	Reason string
}

// StatusSuccess returns a successful status.
func StatusSuccess() Status {
	return Status{Success: true}
}

// StatusFailed returns a failed status with the given reason.
func StatusFailed(reason string) Status {
	return Status{Reason: reason}
}

// Text renders the status for display: "Success" or "Failed: <reason>".
func (s Status) Text() string {
	if s.Success {
		return "Success"
	}
	return "Failed: " + s.Reason
}

// InstructionLog is one instruction occurrence, top-level or nested.
//
// Children holds immediate nested invocations in execution order. A node is
// owned exclusively by its parent (or by the TransactionLog when top-level):
// the log forms a strict tree with no sharing or back-references, and is
// immutable once assembly returns it.
type InstructionLog struct {
	// Index is the instruction's position: among top-level instructions
	// for depth 0, among the parent's trace records otherwise.
	Index int

	// ProgramID is the invoked program's identifier.
	ProgramID types.Pubkey

	// ProgramName is the resolved display name, falling back to
	// decoder.UnknownProgramName for unregistered programs.
	ProgramName string

	// Data is the raw instruction payload, kept verbatim whether or not
	// decoding succeeded.
	Data []byte

	// Accounts are the instruction's account references in order.
	Accounts []decoder.AccountRef

	// Depth is the nesting level: 0 for top-level, incremented per CPI.
	Depth int

	// Decoded is the decoder's output, or nil when no registered decoder
	// recognized the instruction. Absence is not an error.
	Decoded *decoder.DecodedInstruction

	// Children are the immediate nested invocations in execution order.
	Children []*InstructionLog
}

// TransactionLog is the decoded record of one executed transaction.
type TransactionLog struct {
	// Signature is the transaction's first signature.
	Signature types.Signature

	// Status is the execution outcome.
	Status Status

	// ComputeUsed is the compute units consumed, from execution metadata.
	ComputeUsed uint64

	// Fee is the transaction fee in lamports.
	Fee uint64

	// ProgramLogs are the program log lines emitted during execution.
	ProgramLogs []string

	// Instructions are the top-level (depth 0) instructions in order.
	Instructions []*InstructionLog

	// AccountStates maps account keys to before/after snapshots. It is
	// nil unless both pre- and post-execution captures were supplied to
	// the assembler.
	AccountStates map[types.Pubkey]statediff.Snapshot
}
