package decoder

import (
	"fmt"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/binio"
)

// FieldsFunc decodes the payload that follows a recognized discriminator
// into display fields. Field names must be unique within one instruction.
type FieldsFunc func(r *binio.Reader) ([]DecodedField, error)

// entry is one row of a discriminator table.
type entry struct {
	name         string
	accountNames []string
	fields       FieldsFunc
}

// TableDecoder is a Decoder backed by a static discriminator table.
//
// Tables are data: they can be written by hand or emitted by an external
// code-generation step. A table is built once at configuration time and is
// read-only afterwards, so a single TableDecoder may serve concurrent
// decodes.
type TableDecoder struct {
	programID types.Pubkey
	name      string
	width     DiscriminatorWidth
	table     map[string]entry
}

// NewTableDecoder creates an empty decoder for the given program and
// discriminator width. It panics on an unsupported width; tables are static
// configuration and a bad width is a programming error, like a malformed
// address constant.
func NewTableDecoder(programID types.Pubkey, name string, width DiscriminatorWidth) *TableDecoder {
	if !width.Valid() {
		panic(fmt.Sprintf("decoder %q: unsupported discriminator width %d", name, width))
	}
	return &TableDecoder{
		programID: programID,
		name:      name,
		width:     width,
		table:     make(map[string]entry),
	}
}

// Define adds one instruction to the table and returns the decoder for
// chaining. disc must be exactly the decoder's discriminator width; fields
// may be nil for instructions with no payload. A later Define with the same
// discriminator overwrites the earlier one.
func (d *TableDecoder) Define(disc []byte, name string, accountNames []string, fields FieldsFunc) *TableDecoder {
	if len(disc) != int(d.width) {
		panic(fmt.Sprintf("decoder %q: instruction %q discriminator is %d bytes, want %d",
			d.name, name, len(disc), d.width))
	}
	d.table[string(disc)] = entry{
		name:         name,
		accountNames: accountNames,
		fields:       fields,
	}
	return d
}

// ProgramID implements Decoder.
func (d *TableDecoder) ProgramID() types.Pubkey {
	return d.programID
}

// ProgramName implements Decoder.
func (d *TableDecoder) ProgramName() string {
	return d.name
}

// Width returns the decoder's discriminator width.
func (d *TableDecoder) Width() DiscriminatorWidth {
	return d.width
}

// Len returns the number of instructions in the table.
func (d *TableDecoder) Len() int {
	return len(d.table)
}

// Decode implements Decoder. It slices the first Width bytes of raw, looks
// them up in the table, and on a hit applies the field procedure to the
// remainder. Payloads shorter than the width, unknown discriminators, and
// malformed payloads after a known discriminator all yield nil.
func (d *TableDecoder) Decode(raw []byte, accounts []AccountRef) *DecodedInstruction {
	if len(raw) < int(d.width) {
		return nil
	}
	e, ok := d.table[string(raw[:d.width])]
	if !ok {
		return nil
	}

	var fields []DecodedField
	if e.fields != nil {
		var err error
		fields, err = e.fields(binio.NewReader(raw[d.width:]))
		if err != nil {
			return nil
		}
	}

	return &DecodedInstruction{
		Name:         e.name,
		AccountNames: zipAccountNames(e.accountNames, len(accounts)),
		Fields:       fields,
	}
}

// zipAccountNames aligns the expected name list with the number of supplied
// accounts: names beyond the account count are dropped, and positions beyond
// the name list get empty names. The result always has length n.
func zipAccountNames(names []string, n int) []string {
	out := make([]string, n)
	copy(out, names)
	return out
}
