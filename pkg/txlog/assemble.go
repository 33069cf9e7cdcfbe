package txlog

import (
	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/decoder"
	"github.com/fortiblox/svmtrace/pkg/statediff"
)

// LamportsPerSignatureFee is the flat per-signature transaction fee.
const LamportsPerSignatureFee = 5000

// MessageHeader describes how a message's static account keys split into
// signer/writability classes, in Solana message order: writable signers,
// readonly signers, writable non-signers, readonly non-signers.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction is an instruction in compiled form: indices into the
// message's static account-key list plus raw payload bytes.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// InnerInstruction is one record of the inner-instruction (CPI) trace.
type InnerInstruction struct {
	CompiledInstruction

	// StackHeight is the execution-trace nesting depth: 1 is the
	// top-level frame, 2 the first CPI level, and so on.
	StackHeight uint8
}

// Message is the compiled transaction message.
type Message struct {
	Header       MessageHeader
	AccountKeys  []types.Pubkey
	Instructions []CompiledInstruction
}

// IsSigner reports whether the account at index i signed the transaction.
func (m *Message) IsSigner(i int) bool {
	return i >= 0 && i < int(m.Header.NumRequiredSignatures)
}

// IsWritable reports whether the account at index i may be written.
func (m *Message) IsWritable(i int) bool {
	if i < 0 || i >= len(m.AccountKeys) {
		return false
	}
	if i < int(m.Header.NumRequiredSignatures) {
		return i < int(m.Header.NumRequiredSignatures)-int(m.Header.NumReadonlySignedAccounts)
	}
	return i < len(m.AccountKeys)-int(m.Header.NumReadonlyUnsignedAccounts)
}

// Transaction is a signed transaction in compiled form, as produced by the
// VM harness.
type Transaction struct {
	Signatures []types.Signature
	Message    Message
}

// ExecutionMeta is the harness-reported result of executing a transaction.
// Both successful and failed executions carry metadata, so failed
// transactions decode identically and stay fully inspectable.
type ExecutionMeta struct {
	// Err is empty on success; otherwise it carries the harness's error
	// description verbatim.
	Err string

	// ComputeUnitsConsumed is the total compute spent.
	ComputeUnitsConsumed uint64

	// LogMessages are the program log lines in emission order.
	LogMessages []string

	// InnerInstructions groups the CPI trace by top-level instruction
	// index. Entries beyond the compiled instruction count are ignored.
	InnerInstructions [][]InnerInstruction
}

// Assembler builds TransactionLogs. It holds only a read-only decoder
// registry, so one assembler may serve concurrent transactions.
type Assembler struct {
	registry *decoder.Registry
}

// NewAssembler creates an assembler over a registry. The registry must be
// fully built before the first Assemble call.
func NewAssembler(registry *decoder.Registry) *Assembler {
	return &Assembler{registry: registry}
}

// Assemble builds the decoded log of one transaction.
//
// pre and post are optional account-state captures taken around execution;
// AccountStates is populated only when both are supplied. Assembly never
// fails: unknown programs get the fallback name, undecodable payloads keep
// their raw bytes, and a failed execution still yields a complete log with
// a Failed status.
func (a *Assembler) Assemble(tx *Transaction, meta *ExecutionMeta, pre, post map[types.Pubkey]statediff.AccountState) *TransactionLog {
	log := &TransactionLog{
		Status:      StatusSuccess(),
		Fee:         uint64(len(tx.Signatures)) * LamportsPerSignatureFee,
		ComputeUsed: meta.ComputeUnitsConsumed,
	}
	if len(tx.Signatures) > 0 {
		log.Signature = tx.Signatures[0]
	}
	if meta.Err != "" {
		log.Status = StatusFailed(meta.Err)
	}
	if len(meta.LogMessages) > 0 {
		log.ProgramLogs = make([]string, len(meta.LogMessages))
		copy(log.ProgramLogs, meta.LogMessages)
	}

	for index, ci := range tx.Message.Instructions {
		node := a.buildNode(&tx.Message, ci, index, 0)

		if index < len(meta.InnerInstructions) {
			records := make([]*InstructionLog, 0, len(meta.InnerInstructions[index]))
			for innerIndex, inner := range meta.InnerInstructions[index] {
				depth := int(inner.StackHeight) - 1
				if depth < 0 {
					depth = 0
				}
				records = append(records, a.buildNode(&tx.Message, inner.CompiledInstruction, innerIndex, depth))
			}
			attachInner(node, records)
		}

		log.Instructions = append(log.Instructions, node)
	}

	if pre != nil && post != nil {
		log.AccountStates = statediff.Diff(pre, post)
	}

	return log
}

// buildNode resolves one compiled instruction into an InstructionLog:
// program identity via the registry, account references via the message,
// and decoded fields via the program's decoder when one is registered.
func (a *Assembler) buildNode(msg *Message, ci CompiledInstruction, index, depth int) *InstructionLog {
	var programID types.Pubkey
	if int(ci.ProgramIDIndex) < len(msg.AccountKeys) {
		programID = msg.AccountKeys[ci.ProgramIDIndex]
	}

	node := &InstructionLog{
		Index:       index,
		ProgramID:   programID,
		ProgramName: a.registry.ProgramName(programID),
		Data:        ci.Data,
		Accounts:    resolveAccounts(msg, ci.AccountIndexes),
		Depth:       depth,
	}

	if dec, ok := a.registry.Resolve(programID); ok {
		node.Decoded = dec.Decode(ci.Data, node.Accounts)
	}
	return node
}

// resolveAccounts maps compiled account indices to account references.
// Out-of-range indices resolve to the zero pubkey rather than failing, so a
// malformed instruction still produces a log entry.
func resolveAccounts(msg *Message, indexes []uint8) []decoder.AccountRef {
	refs := make([]decoder.AccountRef, len(indexes))
	for i, idx := range indexes {
		ref := decoder.AccountRef{}
		if int(idx) < len(msg.AccountKeys) {
			ref.Pubkey = msg.AccountKeys[idx]
			ref.IsSigner = msg.IsSigner(int(idx))
			ref.IsWritable = msg.IsWritable(int(idx))
		}
		refs[i] = ref
	}
	return refs
}
