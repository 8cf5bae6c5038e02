package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Chain identifiers understood by external wallet applications.
const (
	ChainSolanaMainnet = "solana:mainnet-beta"
	ChainSolanaDevnet  = "solana:devnet"
	ChainSolanaTestnet = "solana:testnet"
)

// SessionStatus describes the connection state of a wallet session.
type SessionStatus string

const (
	StatusConnected    SessionStatus = "connected"
	StatusError        SessionStatus = "error"
	StatusDisconnected SessionStatus = "disconnected"
)

// SigningMethod identifies a signing operation requested from an external wallet.
type SigningMethod string

const (
	SignMethodTransaction SigningMethod = "sign_transactions"
	SignMethodMessage     SigningMethod = "sign_messages"
)

// WalletSession is a local record of one authorized relationship with one
// account in an external wallet application. Sessions live only in memory;
// the auth token is the single field persisted across launches.
type WalletSession struct {
	// SessionID is process-unique, assigned at creation, never reused.
	SessionID string `json:"session_id"`

	// Address is the account public key in base58. Not unique across
	// sessions: the same wallet can be added again under a new session id.
	Address string `json:"address"`

	Label      string `json:"label"`
	WalletName string `json:"wallet_name,omitempty"`
	Icon       string `json:"icon,omitempty"`

	// AuthToken is the opaque credential from the last successful
	// authorize/reauthorize exchange.
	AuthToken string `json:"-"`

	Status SessionStatus `json:"status"`

	// CreatedAt and LastActivityAt are milliseconds since epoch.
	// LastActivityAt advances on every successful sign or refresh.
	CreatedAt      int64 `json:"created_at"`
	LastActivityAt int64 `json:"last_activity_at"`

	// ErrorMessage is set only while Status is StatusError.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Identity describes this application to external wallets during authorization.
type Identity struct {
	Name string
	URI  string
	Icon string
}

// Account is one account granted by an authorize or reauthorize exchange.
// Address carries the raw 32-byte public key as it appears on the wire.
type Account struct {
	Address []byte
	Label   string
}

// Base58Address renders the raw account key in the base58 form used locally.
func (a Account) Base58Address() (string, error) {
	if len(a.Address) != solana.PublicKeyLength {
		return "", fmt.Errorf("account address must be %d bytes, got %d", solana.PublicKeyLength, len(a.Address))
	}
	return solana.PublicKeyFromBytes(a.Address).String(), nil
}

// AuthorizationResult is the outcome of a successful authorize or
// reauthorize exchange. One authorization may grant multiple accounts.
type AuthorizationResult struct {
	Accounts   []Account
	AuthToken  string
	WalletName string
	WalletIcon string
}

// Capabilities reports what the connected external wallet supports.
type Capabilities struct {
	SupportsSign               bool
	SupportsSignAndSend        bool
	SupportsCloneAuthorization bool
	MaxTransactionsPerRequest  int
	MaxMessagesPerRequest      int
}
