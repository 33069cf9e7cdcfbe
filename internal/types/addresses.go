// Package types provides well-known program addresses used by the decoder.
package types

import "fmt"

// Native program addresses. These are the same across Solana mainnet and X1.
var (
	// SystemProgramAddr is the System Program address (32 zero bytes).
	SystemProgramAddr = MustPubkeyFromBase58("11111111111111111111111111111111")

	// TokenProgramAddr is the SPL Token Program address.
	TokenProgramAddr = MustPubkeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Token2022ProgramAddr is the Token-2022 Program address.
	Token2022ProgramAddr = MustPubkeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	// AssociatedTokenProgramAddr is the Associated Token Account Program address.
	AssociatedTokenProgramAddr = MustPubkeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	// ComputeBudgetProgramAddr is the Compute Budget Program address.
	ComputeBudgetProgramAddr = MustPubkeyFromBase58("ComputeBudget111111111111111111111111111111")

	// BPFLoaderUpgradeableAddr is the BPF Loader Upgradeable address.
	BPFLoaderUpgradeableAddr = MustPubkeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

	// SysvarRentAddr is the Rent sysvar address.
	SysvarRentAddr = MustPubkeyFromBase58("SysvarRent111111111111111111111111111111111")

	// SysvarClockAddr is the Clock sysvar address.
	SysvarClockAddr = MustPubkeyFromBase58("SysvarC1ock11111111111111111111111111111111")
)

// DefaultOwner is the owner reported for accounts that do not exist.
// It equals the System Program address, which is all zero bytes, matching
// the convention that unfunded accounts belong to the system program.
var DefaultOwner = SystemProgramAddr

// MustPubkeyFromBase58 parses a base58 pubkey or panics.
// Only use for compile-time constants.
func MustPubkeyFromBase58(s string) Pubkey {
	p, err := PubkeyFromBase58(s)
	if err != nil {
		panic(fmt.Sprintf("invalid pubkey constant %q: %v", s, err))
	}
	return p
}
