package txlog

import "encoding/hex"

// Snapshot types: a JSON-serializable projection of a TransactionLog with
// all values rendered as strings. The projection mirrors every structural
// field of TransactionLog and InstructionLog; empty optional collections are
// omitted so golden files stay stable across unrelated additions.

// TransactionSnapshot is the JSON projection of a TransactionLog.
type TransactionSnapshot struct {
	Signature     string                          `json:"signature"`
	Status        string                          `json:"status"`
	Fee           uint64                          `json:"fee"`
	ComputeUsed   uint64                          `json:"compute_used"`
	ProgramLogs   []string                        `json:"program_logs,omitempty"`
	Instructions  []InstructionSnapshot           `json:"instructions"`
	AccountStates map[string]AccountStateSnapshot `json:"account_states,omitempty"`
}

// InstructionSnapshot is the JSON projection of one InstructionLog.
type InstructionSnapshot struct {
	Index             int                   `json:"index"`
	Depth             int                   `json:"depth"`
	ProgramID         string                `json:"program_id"`
	ProgramName       string                `json:"program_name"`
	InstructionName   string                `json:"instruction_name,omitempty"`
	Data              string                `json:"data,omitempty"`
	Accounts          []AccountRefSnapshot  `json:"accounts,omitempty"`
	AccountNames      []string              `json:"account_names,omitempty"`
	DecodedFields     []FieldSnapshot       `json:"decoded_fields,omitempty"`
	InnerInstructions []InstructionSnapshot `json:"inner_instructions,omitempty"`
}

// AccountRefSnapshot is the JSON projection of one account reference.
type AccountRefSnapshot struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// FieldSnapshot is the JSON projection of one decoded field.
type FieldSnapshot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AccountStateSnapshot is the JSON projection of one account diff.
type AccountStateSnapshot struct {
	LamportsBefore uint64 `json:"lamports_before"`
	LamportsAfter  uint64 `json:"lamports_after"`
	DataLenBefore  uint64 `json:"data_len_before"`
	DataLenAfter   uint64 `json:"data_len_after"`
	Owner          string `json:"owner"`
}

// Snapshot projects a TransactionLog for JSON serialization.
func Snapshot(log *TransactionLog) *TransactionSnapshot {
	snap := &TransactionSnapshot{
		Signature:    log.Signature.String(),
		Status:       log.Status.Text(),
		Fee:          log.Fee,
		ComputeUsed:  log.ComputeUsed,
		ProgramLogs:  log.ProgramLogs,
		Instructions: make([]InstructionSnapshot, 0, len(log.Instructions)),
	}
	for _, ix := range log.Instructions {
		snap.Instructions = append(snap.Instructions, instructionSnapshot(ix))
	}
	if log.AccountStates != nil {
		snap.AccountStates = make(map[string]AccountStateSnapshot, len(log.AccountStates))
		for key, s := range log.AccountStates {
			snap.AccountStates[key.String()] = AccountStateSnapshot{
				LamportsBefore: s.LamportsBefore,
				LamportsAfter:  s.LamportsAfter,
				DataLenBefore:  s.DataLenBefore,
				DataLenAfter:   s.DataLenAfter,
				Owner:          s.Owner.String(),
			}
		}
	}
	return snap
}

// instructionSnapshot projects one instruction node and its subtree.
func instructionSnapshot(ix *InstructionLog) InstructionSnapshot {
	snap := InstructionSnapshot{
		Index:       ix.Index,
		Depth:       ix.Depth,
		ProgramID:   ix.ProgramID.String(),
		ProgramName: ix.ProgramName,
		Data:        hex.EncodeToString(ix.Data),
	}

	for _, acct := range ix.Accounts {
		snap.Accounts = append(snap.Accounts, AccountRefSnapshot{
			Pubkey:     acct.Pubkey.String(),
			IsSigner:   acct.IsSigner,
			IsWritable: acct.IsWritable,
		})
	}

	if ix.Decoded != nil {
		snap.InstructionName = ix.Decoded.Name
		snap.AccountNames = ix.Decoded.AccountNames
		for _, f := range ix.Decoded.Fields {
			snap.DecodedFields = append(snap.DecodedFields, FieldSnapshot{Name: f.Name, Value: f.Value})
		}
	}

	for _, child := range ix.Children {
		snap.InnerInstructions = append(snap.InnerInstructions, instructionSnapshot(child))
	}
	return snap
}
