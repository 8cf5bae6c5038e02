// Package fixtures builds wallet-protocol test data: accounts,
// authorization grants, and legacy/versioned Solana transactions.
package fixtures

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/tidewallet/tidewallet/pkg/types"
)

// NewAccount generates a random keypair.
func NewAccount(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// Grant builds an AuthorizationResult for the given accounts.
func Grant(token string, accounts ...solana.PublicKey) *types.AuthorizationResult {
	res := &types.AuthorizationResult{
		AuthToken:  token,
		WalletName: "TestWallet",
	}
	for _, pk := range accounts {
		res.Accounts = append(res.Accounts, types.Account{Address: pk.Bytes()})
	}
	return res
}

// LegacyTx builds a minimal legacy transaction with the given signer slots.
// Signature slot i is filled when signed[i] is true, zero otherwise.
func LegacyTx(t *testing.T, signers []solana.PublicKey, signed []bool) []byte {
	t.Helper()
	require.Equal(t, len(signers), len(signed))

	tx := &solana.Transaction{
		Message: solana.Message{
			Header:          solana.MessageHeader{NumRequiredSignatures: uint8(len(signers))},
			AccountKeys:     signers,
			RecentBlockhash: solana.Hash{},
		},
	}
	for i := range signers {
		var sig solana.Signature
		if signed[i] {
			for j := range sig {
				sig[j] = byte(i + 1)
			}
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

// VersionedTx builds a minimal v0 transaction with the given signer slots.
func VersionedTx(t *testing.T, signers []solana.PublicKey, signed []bool) []byte {
	t.Helper()
	require.Equal(t, len(signers), len(signed))

	msg := solana.Message{
		Header:          solana.MessageHeader{NumRequiredSignatures: uint8(len(signers))},
		AccountKeys:     signers,
		RecentBlockhash: solana.Hash{},
	}
	msg.SetVersion(solana.MessageVersionV0)

	tx := &solana.Transaction{Message: msg}
	for i := range signers {
		var sig solana.Signature
		if signed[i] {
			for j := range sig {
				sig[j] = byte(i + 1)
			}
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

// UnsignedLegacyTx builds a single-signer legacy transaction with an empty
// signature slot.
func UnsignedLegacyTx(t *testing.T, payer solana.PublicKey) []byte {
	return LegacyTx(t, []solana.PublicKey{payer}, []bool{false})
}

// SignedLegacyTx builds a single-signer legacy transaction with a filled
// signature slot.
func SignedLegacyTx(t *testing.T, payer solana.PublicKey) []byte {
	return LegacyTx(t, []solana.PublicKey{payer}, []bool{true})
}
