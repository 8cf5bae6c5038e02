// Package txcodec converts between raw protocol bytes and Solana
// transactions. Both the legacy and the versioned wire formats are
// supported; they differ in how partially-signed results are judged.
package txcodec

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
)

// Decode parses raw bytes as a legacy or versioned transaction.
func Decode(raw []byte) (*solana.Transaction, error) {
	if len(raw) == 0 {
		return nil, apperrors.InvalidTransaction("empty transaction payload")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, apperrors.InvalidTransaction(err.Error())
	}
	return tx, nil
}

// Serialize renders a transaction to transport-ready bytes.
func Serialize(tx *solana.Transaction) ([]byte, error) {
	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, apperrors.InvalidTransaction(fmt.Sprintf("serialize: %v", err))
	}
	return out, nil
}

// IsVersioned reports whether the transaction uses the versioned message
// format rather than the legacy one.
func IsVersioned(tx *solana.Transaction) bool {
	return tx.Message.GetVersion() != solana.MessageVersionLegacy
}

// CheckSigned validates signed bytes returned by an external wallet and
// re-serializes them canonically.
//
// Legacy transactions allow partial signatures: only the fee payer slot has
// to be filled, remaining co-signer slots may still be zero. Versioned
// transactions resolve address tables wallet-side and must come back with
// every required signature present.
func CheckSigned(raw []byte) ([]byte, error) {
	tx, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Signatures) < required {
		return nil, apperrors.ErrNoSignatureReturned
	}

	if IsVersioned(tx) {
		for i := 0; i < required; i++ {
			if tx.Signatures[i].IsZero() {
				return nil, apperrors.ErrNoSignatureReturned
			}
		}
	} else if tx.Signatures[0].IsZero() {
		return nil, apperrors.ErrNoSignatureReturned
	}

	return Serialize(tx)
}

// AddressBytes converts a base58 address to the raw 32-byte form used on
// the wire.
func AddressBytes(address string) ([]byte, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Invalid wallet address", err.Error())
	}
	return pk.Bytes(), nil
}

// Base58Address converts a raw 32-byte wire address to base58.
func Base58Address(raw []byte) (string, error) {
	if len(raw) != solana.PublicKeyLength {
		return "", apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid wallet address",
			fmt.Sprintf("expected %d bytes, got %d", solana.PublicKeyLength, len(raw)),
		)
	}
	return solana.PublicKeyFromBytes(raw).String(), nil
}
