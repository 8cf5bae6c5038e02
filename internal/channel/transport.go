package channel

import (
	"context"
	"errors"

	"github.com/tidewallet/tidewallet/pkg/types"
)

// Sentinel errors for Transport and Exchange implementations. The channel
// classifies them into the typed error taxonomy at the catch point.
var (
	// ErrNoWallet means no installed wallet application can handle the
	// authorization protocol.
	ErrNoWallet = errors.New("no compatible wallet application installed")

	// ErrDeclined means the user dismissed the external wallet's UI.
	ErrDeclined = errors.New("request declined in wallet")
)

// AuthorizeRequest is the payload of an authorize exchange.
type AuthorizeRequest struct {
	Identity types.Identity
	Chain    string // "<network-namespace>:<network-name>", e.g. "solana:mainnet-beta"
	Features []string
	BaseURI  string
}

// Exchange is one open protocol round trip with an external wallet app.
// Sign calls are only valid after Authorize or Reauthorize succeeded on the
// same exchange; the external wallet needs an active exchange, not just a
// cached token.
type Exchange interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*types.AuthorizationResult, error)
	Reauthorize(ctx context.Context, identity types.Identity, authToken string) (*types.AuthorizationResult, error)
	Deauthorize(ctx context.Context, authToken string) error
	GetCapabilities(ctx context.Context) (*types.Capabilities, error)

	// SignTransactions submits raw transaction bytes and returns signed
	// transaction bytes, index-aligned with the input.
	SignTransactions(ctx context.Context, transactions [][]byte) ([][]byte, error)

	// SignMessages signs each payload with each requested account.
	// Addresses carry raw 32-byte public keys as on the wire.
	SignMessages(ctx context.Context, addresses [][]byte, payloads [][]byte) ([][]byte, error)

	Close() error
}

// Transport opens exchanges against the platform wallet-adapter binding.
// Opening fails with ErrNoWallet when no wallet app is installed.
type Transport interface {
	Open(ctx context.Context) (Exchange, error)
}
