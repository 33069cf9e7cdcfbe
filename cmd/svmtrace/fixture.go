package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/statediff"
	"github.com/fortiblox/svmtrace/pkg/txlog"
)

// fixture is the JSON form of a captured transaction execution: the compiled
// transaction, the harness metadata, and optional pre/post account states.
// Pubkeys and signatures are base58 strings, instruction data is hex.
type fixture struct {
	Signatures []string                       `json:"signatures"`
	Message    fixtureMessage                 `json:"message"`
	Meta       fixtureMeta                    `json:"meta"`
	PreStates  map[string]fixtureAccountState `json:"pre_states,omitempty"`
	PostStates map[string]fixtureAccountState `json:"post_states,omitempty"`
}

type fixtureMessage struct {
	Header struct {
		NumRequiredSignatures       uint8 `json:"num_required_signatures"`
		NumReadonlySignedAccounts   uint8 `json:"num_readonly_signed_accounts"`
		NumReadonlyUnsignedAccounts uint8 `json:"num_readonly_unsigned_accounts"`
	} `json:"header"`
	AccountKeys  []string             `json:"account_keys"`
	Instructions []fixtureInstruction `json:"instructions"`
}

type fixtureInstruction struct {
	ProgramIDIndex uint8   `json:"program_id_index"`
	Accounts       []uint8 `json:"accounts"`
	Data           string  `json:"data"`

	// StackHeight is only meaningful for inner instructions.
	StackHeight uint8 `json:"stack_height,omitempty"`
}

type fixtureMeta struct {
	Err                  string                 `json:"err,omitempty"`
	ComputeUnitsConsumed uint64                 `json:"compute_units_consumed"`
	LogMessages          []string               `json:"log_messages,omitempty"`
	InnerInstructions    [][]fixtureInstruction `json:"inner_instructions,omitempty"`
}

type fixtureAccountState struct {
	Lamports uint64 `json:"lamports"`
	DataLen  uint64 `json:"data_len"`
	Owner    string `json:"owner"`
}

// loadFixture reads and parses a fixture file.
func loadFixture(path string) (*fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// compile converts the fixture into assembler inputs.
func (fx *fixture) compile() (*txlog.Transaction, *txlog.ExecutionMeta, map[types.Pubkey]statediff.AccountState, map[types.Pubkey]statediff.AccountState, error) {
	tx := &txlog.Transaction{}

	for i, s := range fx.Signatures {
		sig, err := types.SignatureFromBase58(s)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("signature %d: %w", i, err)
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	tx.Message.Header = txlog.MessageHeader{
		NumRequiredSignatures:       fx.Message.Header.NumRequiredSignatures,
		NumReadonlySignedAccounts:   fx.Message.Header.NumReadonlySignedAccounts,
		NumReadonlyUnsignedAccounts: fx.Message.Header.NumReadonlyUnsignedAccounts,
	}
	for i, s := range fx.Message.AccountKeys {
		key, err := types.PubkeyFromBase58(s)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("account key %d: %w", i, err)
		}
		tx.Message.AccountKeys = append(tx.Message.AccountKeys, key)
	}
	for i, ix := range fx.Message.Instructions {
		ci, err := ix.compile()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		tx.Message.Instructions = append(tx.Message.Instructions, ci)
	}

	meta := &txlog.ExecutionMeta{
		Err:                  fx.Meta.Err,
		ComputeUnitsConsumed: fx.Meta.ComputeUnitsConsumed,
		LogMessages:          fx.Meta.LogMessages,
	}
	for i, group := range fx.Meta.InnerInstructions {
		inner := make([]txlog.InnerInstruction, 0, len(group))
		for j, ix := range group {
			ci, err := ix.compile()
			if err != nil {
				return nil, nil, nil, nil, fmt.Errorf("inner instruction %d.%d: %w", i, j, err)
			}
			inner = append(inner, txlog.InnerInstruction{CompiledInstruction: ci, StackHeight: ix.StackHeight})
		}
		meta.InnerInstructions = append(meta.InnerInstructions, inner)
	}

	pre, err := compileStates(fx.PreStates)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("pre states: %w", err)
	}
	post, err := compileStates(fx.PostStates)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("post states: %w", err)
	}

	return tx, meta, pre, post, nil
}

func (ix fixtureInstruction) compile() (txlog.CompiledInstruction, error) {
	data, err := hex.DecodeString(ix.Data)
	if err != nil {
		return txlog.CompiledInstruction{}, fmt.Errorf("data: %w", err)
	}
	return txlog.CompiledInstruction{
		ProgramIDIndex: ix.ProgramIDIndex,
		AccountIndexes: ix.Accounts,
		Data:           data,
	}, nil
}

func compileStates(states map[string]fixtureAccountState) (map[types.Pubkey]statediff.AccountState, error) {
	if states == nil {
		return nil, nil
	}
	out := make(map[types.Pubkey]statediff.AccountState, len(states))
	for keyStr, st := range states {
		key, err := types.PubkeyFromBase58(keyStr)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", keyStr, err)
		}
		owner, err := types.PubkeyFromBase58(st.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner of %q: %w", keyStr, err)
		}
		out[key] = statediff.AccountState{Lamports: st.Lamports, DataLen: st.DataLen, Owner: owner}
	}
	return out, nil
}
