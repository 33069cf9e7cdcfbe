// Package decoder defines the instruction decoder contract and the registry
// that routes program identifiers to decoders.
//
// A decoder owns one program's discriminator table: the mapping from the
// leading bytes of an instruction's payload to an instruction name, a field
// decode procedure, and the expected account name list. Decoders are pure
// and total: they return nil for anything they do not recognize and never
// return errors or panic, so a single undecodable instruction can never
// abort decoding of a transaction.
package decoder

import "github.com/fortiblox/svmtrace/internal/types"

// DiscriminatorWidth is the number of leading payload bytes that select an
// instruction variant. Supported widths are 1 (SPL-style programs), 4
// (System Program) and 8 (anchor programs).
type DiscriminatorWidth int

// Supported discriminator widths.
const (
	Width1 DiscriminatorWidth = 1
	Width4 DiscriminatorWidth = 4
	Width8 DiscriminatorWidth = 8
)

// Valid reports whether w is a supported width.
func (w DiscriminatorWidth) Valid() bool {
	return w == Width1 || w == Width4 || w == Width8
}

// AccountRef is an instruction's reference to an account, resolved from
// compiled account indices at decode time.
type AccountRef struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// DecodedField is one named field of a decoded instruction. Values are
// rendered to display strings at decode time, which keeps the record shape
// uniform across arbitrarily different instruction schemas.
type DecodedField struct {
	Name  string
	Value string
}

// DecodedInstruction is the result of a successful decode.
//
// AccountNames is aligned positionally with the account list supplied to
// Decode and always has the same length: when the decoder expects more
// names than accounts were supplied the extra names are dropped, and when
// fewer the remaining positions carry empty names.
type DecodedInstruction struct {
	Name         string
	AccountNames []string
	Fields       []DecodedField
}

// Decoder decodes one program's instructions.
//
// Decode must be pure. It returns nil (never an error) when raw is shorter
// than the discriminator width, when the discriminator is unrecognized, and
// when the payload after a recognized discriminator is malformed. The caller
// keeps the raw bytes either way, so nothing is silently dropped.
type Decoder interface {
	// ProgramID returns the identifier of the program this decoder handles.
	ProgramID() types.Pubkey

	// ProgramName returns the human-readable program name.
	ProgramName() string

	// Decode attempts to decode an instruction payload.
	Decode(raw []byte, accounts []AccountRef) *DecodedInstruction
}
