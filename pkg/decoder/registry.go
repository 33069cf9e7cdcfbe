package decoder

import "github.com/fortiblox/svmtrace/internal/types"

// UnknownProgramName is the fallback name reported for programs without a
// registered decoder or name. Lookups never fail: every instruction gets a
// log entry whether or not anything recognizes it.
const UnknownProgramName = "Unknown Program"

// Registry maps program identifiers to instruction decoders.
//
// A registry is built once at configuration time and must be treated as
// read-only afterwards; concurrent lookups against a finished registry are
// safe, concurrent registration is not.
type Registry struct {
	decoders map[types.Pubkey]Decoder
	names    map[types.Pubkey]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[types.Pubkey]Decoder),
		names:    make(map[types.Pubkey]string),
	}
}

// Register adds a decoder, overwriting any existing decoder for the same
// program identifier. Last registration wins.
func (r *Registry) Register(d Decoder) {
	r.decoders[d.ProgramID()] = d
}

// RegisterName records a display name for a program that has no decoder,
// so known-but-undecoded programs still render with a real name.
// A registered decoder's name takes precedence.
func (r *Registry) RegisterName(id types.Pubkey, name string) {
	r.names[id] = name
}

// Has reports whether a decoder is registered for the identifier.
func (r *Registry) Has(id types.Pubkey) bool {
	_, ok := r.decoders[id]
	return ok
}

// Resolve returns the decoder for the identifier, if any.
func (r *Registry) Resolve(id types.Pubkey) (Decoder, bool) {
	d, ok := r.decoders[id]
	return d, ok
}

// ProgramName returns the display name for the identifier: the registered
// decoder's name, else a registered name-only entry, else
// UnknownProgramName. Never an error.
func (r *Registry) ProgramName(id types.Pubkey) string {
	if d, ok := r.decoders[id]; ok {
		return d.ProgramName()
	}
	if name, ok := r.names[id]; ok {
		return name
	}
	return UnknownProgramName
}
