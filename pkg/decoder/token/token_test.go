package token

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/decoder"
)

var (
	source    = types.MustPubkeyFromBase58("Vote111111111111111111111111111111111111111")
	dest      = types.MustPubkeyFromBase58("Stake11111111111111111111111111111111111111")
	authority = types.MustPubkeyFromBase58("Config1111111111111111111111111111111111111")
)

func refs(n int) []decoder.AccountRef {
	out := make([]decoder.AccountRef, n)
	for i := range out {
		out[i] = decoder.AccountRef{Pubkey: source}
	}
	return out
}

func TestDecodeTransfer(t *testing.T) {
	d := NewDecoder()

	data := make([]byte, 9)
	data[0] = InstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], 123456)

	got := d.Decode(data, refs(3))
	require.NotNil(t, got)
	assert.Equal(t, "Transfer", got.Name)
	assert.Equal(t, []string{"source", "destination", "authority"}, got.AccountNames)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "amount", got.Fields[0].Name)
	assert.Equal(t, "123456", got.Fields[0].Value)
}

func TestDecodeTransferChecked(t *testing.T) {
	d := NewDecoder()

	data := make([]byte, 10)
	data[0] = InstructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], 5000)
	data[9] = 6

	got := d.Decode(data, refs(4))
	require.NotNil(t, got)
	assert.Equal(t, "TransferChecked", got.Name)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "5000", got.Fields[0].Value)
	assert.Equal(t, "6", got.Fields[1].Value)
}

func TestDecodeInitializeMint(t *testing.T) {
	d := NewDecoder()

	// decimals + mint authority + present freeze authority.
	data := []byte{InstructionInitializeMint, 9}
	data = append(data, authority.Bytes()...)
	data = append(data, 1)
	data = append(data, dest.Bytes()...)

	got := d.Decode(data, refs(2))
	require.NotNil(t, got)
	assert.Equal(t, "InitializeMint", got.Name)
	require.Len(t, got.Fields, 3)
	assert.Equal(t, "9", got.Fields[0].Value)
	assert.Equal(t, authority.String(), got.Fields[1].Value)
	assert.Equal(t, dest.String(), got.Fields[2].Value)

	// Absent freeze authority omits the field.
	data = []byte{InstructionInitializeMint, 9}
	data = append(data, authority.Bytes()...)
	data = append(data, 0)

	got = d.Decode(data, refs(2))
	require.NotNil(t, got)
	assert.Len(t, got.Fields, 2)

	// An option tag other than 0/1 is malformed, not coerced.
	data = []byte{InstructionInitializeMint, 9}
	data = append(data, authority.Bytes()...)
	data = append(data, 7)

	assert.Nil(t, d.Decode(data, refs(2)))
}

func TestDecodeSetAuthority(t *testing.T) {
	d := NewDecoder()

	data := []byte{InstructionSetAuthority, 2, 1}
	data = append(data, dest.Bytes()...)

	got := d.Decode(data, refs(2))
	require.NotNil(t, got)
	assert.Equal(t, "SetAuthority", got.Name)
	assert.Equal(t, "AccountOwner", got.Fields[0].Value)
	assert.Equal(t, dest.String(), got.Fields[1].Value)
}

func TestDecodeParameterless(t *testing.T) {
	d := NewDecoder()

	cases := []struct {
		disc byte
		name string
	}{
		{InstructionInitializeAccount, "InitializeAccount"},
		{InstructionRevoke, "Revoke"},
		{InstructionCloseAccount, "CloseAccount"},
		{InstructionFreezeAccount, "FreezeAccount"},
		{InstructionThawAccount, "ThawAccount"},
	}
	for _, c := range cases {
		got := d.Decode([]byte{c.disc}, refs(4))
		require.NotNil(t, got, "disc %d", c.disc)
		assert.Equal(t, c.name, got.Name)
		assert.Empty(t, got.Fields)
	}
}

func TestDecodeUnknownDiscriminator(t *testing.T) {
	d := NewDecoder()
	assert.Nil(t, d.Decode([]byte{0xEE, 1, 2}, refs(1)))
	assert.Nil(t, d.Decode(nil, refs(1)))
}

func TestToken2022SharesLayout(t *testing.T) {
	d := NewToken2022Decoder()
	assert.Equal(t, types.Token2022ProgramAddr, d.ProgramID())
	assert.Equal(t, "Token-2022 Program", d.ProgramName())

	data := make([]byte, 9)
	data[0] = InstructionMintTo
	binary.LittleEndian.PutUint64(data[1:], 77)

	got := d.Decode(data, refs(3))
	require.NotNil(t, got)
	assert.Equal(t, "MintTo", got.Name)
	assert.Equal(t, "77", got.Fields[0].Value)
}
