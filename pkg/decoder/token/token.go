// Package token provides instruction decoders for the SPL Token Program and
// Token-2022, which share the same 1-byte discriminator layout for the
// instructions decoded here.
package token

import (
	"strconv"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/binio"
	"github.com/fortiblox/svmtrace/pkg/decoder"
)

// Instruction discriminants (first payload byte).
const (
	InstructionInitializeMint = iota
	InstructionInitializeAccount
	InstructionInitializeMultisig
	InstructionTransfer
	InstructionApprove
	InstructionRevoke
	InstructionSetAuthority
	InstructionMintTo
	InstructionBurn
	InstructionCloseAccount
	InstructionFreezeAccount
	InstructionThawAccount
	InstructionTransferChecked
)

// Authority types for SetAuthority.
var authorityTypes = []string{"MintTokens", "FreezeAccount", "AccountOwner", "CloseAccount"}

// NewDecoder builds the decoder for the SPL Token Program.
func NewDecoder() *decoder.TableDecoder {
	return build(types.TokenProgramAddr, "Token Program")
}

// NewToken2022Decoder builds the decoder for Token-2022. The instruction
// subset decoded here is layout-compatible with the original Token Program.
func NewToken2022Decoder() *decoder.TableDecoder {
	return build(types.Token2022ProgramAddr, "Token-2022 Program")
}

func build(programID types.Pubkey, name string) *decoder.TableDecoder {
	d := decoder.NewTableDecoder(programID, name, decoder.Width1)

	d.Define([]byte{InstructionInitializeMint}, "InitializeMint",
		[]string{"mint", "rent_sysvar"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			decimals, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			mintAuthority, err := r.ReadPubkey()
			if err != nil {
				return nil, err
			}
			freezeAuthority, err := binio.ReadOption(r, (*binio.Reader).ReadPubkey)
			if err != nil {
				return nil, err
			}
			fields := []decoder.DecodedField{
				{Name: "decimals", Value: strconv.Itoa(int(decimals))},
				{Name: "mint_authority", Value: mintAuthority.String()},
			}
			if freezeAuthority != nil {
				fields = append(fields, decoder.DecodedField{
					Name: "freeze_authority", Value: freezeAuthority.String(),
				})
			}
			return fields, nil
		})

	d.Define([]byte{InstructionInitializeAccount}, "InitializeAccount",
		[]string{"account", "mint", "owner", "rent_sysvar"},
		nil)

	d.Define([]byte{InstructionTransfer}, "Transfer",
		[]string{"source", "destination", "authority"},
		amountField)

	d.Define([]byte{InstructionApprove}, "Approve",
		[]string{"source", "delegate", "owner"},
		amountField)

	d.Define([]byte{InstructionRevoke}, "Revoke",
		[]string{"source", "owner"},
		nil)

	d.Define([]byte{InstructionSetAuthority}, "SetAuthority",
		[]string{"account", "current_authority"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			authorityType, err := r.ReadVariantTag()
			if err != nil {
				return nil, err
			}
			newAuthority, err := binio.ReadOption(r, (*binio.Reader).ReadPubkey)
			if err != nil {
				return nil, err
			}
			fields := []decoder.DecodedField{
				{Name: "authority_type", Value: authorityTypeName(authorityType)},
			}
			if newAuthority != nil {
				fields = append(fields, decoder.DecodedField{
					Name: "new_authority", Value: newAuthority.String(),
				})
			}
			return fields, nil
		})

	d.Define([]byte{InstructionMintTo}, "MintTo",
		[]string{"mint", "account", "mint_authority"},
		amountField)

	d.Define([]byte{InstructionBurn}, "Burn",
		[]string{"account", "mint", "authority"},
		amountField)

	d.Define([]byte{InstructionCloseAccount}, "CloseAccount",
		[]string{"account", "destination", "owner"},
		nil)

	d.Define([]byte{InstructionFreezeAccount}, "FreezeAccount",
		[]string{"account", "mint", "freeze_authority"},
		nil)

	d.Define([]byte{InstructionThawAccount}, "ThawAccount",
		[]string{"account", "mint", "freeze_authority"},
		nil)

	d.Define([]byte{InstructionTransferChecked}, "TransferChecked",
		[]string{"source", "mint", "destination", "authority"},
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			amount, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			decimals, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "amount", Value: strconv.FormatUint(amount, 10)},
				{Name: "decimals", Value: strconv.Itoa(int(decimals))},
			}, nil
		})

	return d
}

// amountField decodes a single u64 token amount.
func amountField(r *binio.Reader) ([]decoder.DecodedField, error) {
	amount, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return []decoder.DecodedField{
		{Name: "amount", Value: strconv.FormatUint(amount, 10)},
	}, nil
}

// authorityTypeName renders a SetAuthority variant tag.
func authorityTypeName(tag uint8) string {
	if int(tag) < len(authorityTypes) {
		return authorityTypes[tag]
	}
	return strconv.Itoa(int(tag))
}
