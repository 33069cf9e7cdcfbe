// Package anchor supports decoders for anchor-framework programs, which
// select instructions with an 8-byte discriminator derived from the method
// name: the first 8 bytes of sha256("global:<method_name>").
//
// Anchor decoder tables are usually emitted by an external generation step
// from a program's IDL; this package gives that step (and hand-written
// tables) a direct way to produce entries keyed by method name.
package anchor

import (
	"crypto/sha256"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/decoder"
)

// Discriminator computes the anchor instruction discriminator for a method
// name as it appears in the program source (snake_case).
func Discriminator(method string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + method))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

// NewDecoder creates an empty width-8 table decoder for an anchor program.
func NewDecoder(programID types.Pubkey, programName string) *decoder.TableDecoder {
	return decoder.NewTableDecoder(programID, programName, decoder.Width8)
}

// Define adds an instruction keyed by its anchor method name. displayName is
// the name reported in decoded output (conventionally the method name in
// PascalCase).
func Define(d *decoder.TableDecoder, method, displayName string, accountNames []string, fields decoder.FieldsFunc) *decoder.TableDecoder {
	disc := Discriminator(method)
	return d.Define(disc[:], displayName, accountNames, fields)
}
