// Package computebudget provides the instruction decoder for the Compute
// Budget Program (1-byte discriminator, no accounts).
package computebudget

import (
	"strconv"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/binio"
	"github.com/fortiblox/svmtrace/pkg/decoder"
)

// Instruction discriminants.
const (
	InstructionRequestUnitsDeprecated = iota
	InstructionRequestHeapFrame
	InstructionSetComputeUnitLimit
	InstructionSetComputeUnitPrice
	InstructionSetLoadedAccountsDataSizeLimit
)

// NewDecoder builds the Compute Budget Program decoder.
func NewDecoder() *decoder.TableDecoder {
	d := decoder.NewTableDecoder(types.ComputeBudgetProgramAddr, "Compute Budget Program", decoder.Width1)

	d.Define([]byte{InstructionRequestUnitsDeprecated}, "RequestUnitsDeprecated", nil,
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			units, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			additionalFee, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "units", Value: strconv.FormatUint(uint64(units), 10)},
				{Name: "additional_fee", Value: strconv.FormatUint(uint64(additionalFee), 10)},
			}, nil
		})

	d.Define([]byte{InstructionRequestHeapFrame}, "RequestHeapFrame", nil,
		u32Field("bytes"))

	d.Define([]byte{InstructionSetComputeUnitLimit}, "SetComputeUnitLimit", nil,
		u32Field("units"))

	d.Define([]byte{InstructionSetComputeUnitPrice}, "SetComputeUnitPrice", nil,
		func(r *binio.Reader) ([]decoder.DecodedField, error) {
			price, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			return []decoder.DecodedField{
				{Name: "micro_lamports", Value: strconv.FormatUint(price, 10)},
			}, nil
		})

	d.Define([]byte{InstructionSetLoadedAccountsDataSizeLimit}, "SetLoadedAccountsDataSizeLimit", nil,
		u32Field("bytes"))

	return d
}

// u32Field decodes a single u32 payload under the given field name.
func u32Field(name string) decoder.FieldsFunc {
	return func(r *binio.Reader) ([]decoder.DecodedField, error) {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return []decoder.DecodedField{{Name: name, Value: strconv.FormatUint(uint64(v), 10)}}, nil
	}
}
