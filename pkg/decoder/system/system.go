// Package system provides the instruction decoder for the System Program.
//
// The System Program uses a 4-byte little-endian discriminator. Payloads are
// bincode-serialized: seed strings carry an 8-byte length prefix, unlike
// borsh strings.
package system

import (
	"encoding/binary"
	"strconv"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/binio"
	"github.com/fortiblox/svmtrace/pkg/decoder"
)

// ProgramName is the display name reported for decoded instructions.
const ProgramName = "System Program"

// Instruction discriminants.
const (
	InstructionCreateAccount = iota
	InstructionAssign
	InstructionTransfer
	InstructionCreateAccountWithSeed
	InstructionAdvanceNonceAccount
	InstructionWithdrawNonceAccount
	InstructionInitializeNonceAccount
	InstructionAuthorizeNonceAccount
	InstructionAllocate
	InstructionAllocateWithSeed
	InstructionAssignWithSeed
	InstructionTransferWithSeed
	InstructionUpgradeNonceAccount
)

// disc renders a discriminant as its 4-byte LE wire form.
func disc(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// NewDecoder builds the System Program decoder.
func NewDecoder() *decoder.TableDecoder {
	d := decoder.NewTableDecoder(types.SystemProgramAddr, ProgramName, decoder.Width4)

	d.Define(disc(InstructionCreateAccount), "CreateAccount",
		[]string{"funding_account", "new_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			lamports, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			space, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			owner, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "lamports", Value: strconv.FormatUint(lamports, 10)},
				{Name: "space", Value: strconv.FormatUint(space, 10)},
				{Name: "owner", Value: owner.String()},
			}, nil
		})

	d.Define(disc(InstructionAssign), "Assign",
		[]string{"assigned_account"},
		pubkeyField("owner"))

	d.Define(disc(InstructionTransfer), "Transfer",
		[]string{"funding_account", "recipient_account"},
		lamportsField)

	d.Define(disc(InstructionCreateAccountWithSeed), "CreateAccountWithSeed",
		[]string{"funding_account", "created_account", "base_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			base, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			seed, err := r.ReadString64()
			if err != nil {
				return nil, err
			}
			lamports, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			space, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			owner, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "base", Value: base.String()},
				{Name: "seed", Value: strconv.Quote(seed)},
				{Name: "lamports", Value: strconv.FormatUint(lamports, 10)},
				{Name: "space", Value: strconv.FormatUint(space, 10)},
				{Name: "owner", Value: owner.String()},
			}, nil
		})

	d.Define(disc(InstructionAdvanceNonceAccount), "AdvanceNonceAccount",
		[]string{"nonce_account", "recent_blockhashes_sysvar", "nonce_authority"},
		nil)

	d.Define(disc(InstructionWithdrawNonceAccount), "WithdrawNonceAccount",
		[]string{"nonce_account", "recipient_account", "recent_blockhashes_sysvar", "rent_sysvar", "nonce_authority"},
		lamportsField)

	d.Define(disc(InstructionInitializeNonceAccount), "InitializeNonceAccount",
		[]string{"nonce_account", "recent_blockhashes_sysvar", "rent_sysvar"},
		pubkeyField("authority"))

	d.Define(disc(InstructionAuthorizeNonceAccount), "AuthorizeNonceAccount",
		[]string{"nonce_account", "nonce_authority"},
		pubkeyField("new_authority"))

	d.Define(disc(InstructionAllocate), "Allocate",
		[]string{"allocated_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			space, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "space", Value: strconv.FormatUint(space, 10)},
			}, nil
		})

	d.Define(disc(InstructionAllocateWithSeed), "AllocateWithSeed",
		[]string{"allocated_account", "base_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			base, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			seed, err := r.ReadString64()
			if err != nil {
				return nil, err
			}
			space, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			owner, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "base", Value: base.String()},
				{Name: "seed", Value: strconv.Quote(seed)},
				{Name: "space", Value: strconv.FormatUint(space, 10)},
				{Name: "owner", Value: owner.String()},
			}, nil
		})

	d.Define(disc(InstructionAssignWithSeed), "AssignWithSeed",
		[]string{"assigned_account", "base_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			base, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			seed, err := r.ReadString64()
			if err != nil {
				return nil, err
			}
			owner, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "base", Value: base.String()},
				{Name: "seed", Value: strconv.Quote(seed)},
				{Name: "owner", Value: owner.String()},
			}, nil
		})

	d.Define(disc(InstructionTransferWithSeed), "TransferWithSeed",
		[]string{"funding_account", "base_account", "recipient_account"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			lamports, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			seed, err := r.ReadString64()
			if err != nil {
				return nil, err
			}
			owner, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "lamports", Value: strconv.FormatUint(lamports, 10)},
				{Name: "from_seed", Value: strconv.Quote(seed)},
				{Name: "from_owner", Value: owner.String()},
			}, nil
		})

	d.Define(disc(InstructionUpgradeNonceAccount), "UpgradeNonceAccount",
		[]string{"nonce_account"},
		nil)

	return d
}

// lamportsField decodes a single u64 lamports payload.
func lamportsField(r *binio.Reader) ([]decoder.DecodedField, error) {
	lamports, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return []decoder.DecodedField{
		{Name: "lamports", Value: strconv.FormatUint(lamports, 10)},
	}, nil
}

// pubkeyField decodes a single pubkey payload under the given field name.
func pubkeyField(name string) decoder.FieldsFunc {
	return func(r *binio.Reader) ([]decoder.DecodedField, error) {
		pk, err := r.ReadPubkey()
		if err != nil {
			return nil, err
		}
		return []decoder.DecodedField{{Name: name, Value: pk.String()}}, nil
	}
}
