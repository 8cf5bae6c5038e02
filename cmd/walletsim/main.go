// Command walletsim exercises the session coordinator against a simulated
// wallet application: add a wallet, sign a transaction and a message, then
// disconnect. It is a manual smoke harness, not part of the product.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tidewallet/tidewallet/internal/biometric"
	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/internal/config"
	"github.com/tidewallet/tidewallet/internal/logger"
	"github.com/tidewallet/tidewallet/internal/metrics"
	"github.com/tidewallet/tidewallet/internal/store"
	"github.com/tidewallet/tidewallet/internal/tokenstore"
	"github.com/tidewallet/tidewallet/internal/wallet"
	"github.com/tidewallet/tidewallet/pkg/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	var tokens tokenstore.Store
	if cfg.TokenStorePath != "" {
		tokens, err = tokenstore.NewFile(cfg.TokenStorePath, cfg.TokenStorePassphrase)
		if err != nil {
			slog.Error("failed to open token store", "error", err)
			os.Exit(1)
		}
	} else {
		tokens = tokenstore.NewMemory()
	}

	sim, err := newSimTransport()
	if err != nil {
		slog.Error("failed to create simulated wallet", "error", err)
		os.Exit(1)
	}

	sink := metrics.NewSink(prometheus.NewRegistry())
	ch := channel.New(sim, cfg.Identity(), cfg.Chain(),
		channel.WithRateLimit(cfg.ExchangeRateLimit, cfg.ExchangeRateBurst),
		channel.WithObserver(sink.ObserveExchange),
	)
	gate := biometric.NewGate(approveAll{}, cfg.BiometricTrustWindow)
	sessions := store.New()

	manager := wallet.NewManager(sessions, gate, ch, tokens,
		wallet.WithEventSink(sink),
		wallet.WithExchangeTimeout(cfg.ExchangeTimeout),
	)
	signer := wallet.NewSigner(sessions, gate, ch, tokens,
		wallet.WithSignerEventSink(sink),
		wallet.WithSignerExchangeTimeout(cfg.ExchangeTimeout),
	)

	ctx := context.Background()

	result, err := manager.AddWallet(ctx, &wallet.AddWalletConfig{Label: "Sim Wallet"})
	if err != nil {
		slog.Error("add wallet failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("connected %s (%s)\n", result.Session.Label, result.Session.Address)

	rawTx, err := sim.unsignedTransferBytes()
	if err != nil {
		slog.Error("failed to build transaction", "error", err)
		os.Exit(1)
	}
	signedTx, err := signer.SignTransaction(ctx, rawTx, nil)
	if err != nil {
		slog.Error("sign transaction failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("signed transaction: %s\n", base64.StdEncoding.EncodeToString(signedTx))

	signature, err := signer.SignMessage(ctx, []byte("hello from walletsim"), nil)
	if err != nil {
		slog.Error("sign message failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("signed message: %s\n", base64.StdEncoding.EncodeToString(signature))

	if err := manager.DisconnectAll(ctx); err != nil {
		slog.Error("disconnect failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("disconnected, %d sessions remain\n", sessions.WalletCount())
}

// approveAll is the simulator's authenticator.
type approveAll struct{}

func (approveAll) Authenticate(context.Context, string) error { return nil }

// simTransport plays the external wallet app in-process.
type simTransport struct {
	account solana.PrivateKey
	token   string
}

func newSimTransport() (*simTransport, error) {
	account, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &simTransport{account: account, token: "sim-token-1"}, nil
}

func (t *simTransport) Open(context.Context) (channel.Exchange, error) {
	return &simExchange{t: t}, nil
}

// unsignedTransferBytes builds a minimal self-transfer for the simulated
// account.
func (t *simTransport) unsignedTransferBytes() ([]byte, error) {
	tx := &solana.Transaction{
		Signatures: []solana.Signature{{}},
		Message: solana.Message{
			Header:          solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys:     []solana.PublicKey{t.account.PublicKey()},
			RecentBlockhash: solana.Hash{},
		},
	}
	return tx.MarshalBinary()
}

type simExchange struct {
	t *simTransport
}

func (e *simExchange) Authorize(_ context.Context, _ channel.AuthorizeRequest) (*types.AuthorizationResult, error) {
	return e.grant()
}

func (e *simExchange) Reauthorize(_ context.Context, _ types.Identity, authToken string) (*types.AuthorizationResult, error) {
	if authToken != e.t.token {
		return nil, fmt.Errorf("unknown auth token")
	}
	return e.grant()
}

func (e *simExchange) grant() (*types.AuthorizationResult, error) {
	return &types.AuthorizationResult{
		Accounts: []types.Account{{
			Address: e.t.account.PublicKey().Bytes(),
			Label:   "Sim Account",
		}},
		AuthToken:  e.t.token,
		WalletName: "SimWallet",
	}, nil
}

func (e *simExchange) Deauthorize(context.Context, string) error { return nil }

func (e *simExchange) GetCapabilities(context.Context) (*types.Capabilities, error) {
	return &types.Capabilities{SupportsSign: true}, nil
}

func (e *simExchange) SignTransactions(_ context.Context, transactions [][]byte) ([][]byte, error) {
	signed := make([][]byte, len(transactions))
	for i, raw := range transactions {
		tx, err := solana.TransactionFromBytes(raw)
		if err != nil {
			return nil, err
		}
		msg, err := tx.Message.MarshalBinary()
		if err != nil {
			return nil, err
		}
		sig, err := e.t.account.Sign(msg)
		if err != nil {
			return nil, err
		}
		tx.Signatures = []solana.Signature{sig}
		signed[i], err = tx.MarshalBinary()
		if err != nil {
			return nil, err
		}
	}
	return signed, nil
}

func (e *simExchange) SignMessages(_ context.Context, addresses [][]byte, payloads [][]byte) ([][]byte, error) {
	sigs := make([][]byte, 0, len(addresses)*len(payloads))
	for range addresses {
		for _, payload := range payloads {
			sig, err := e.t.account.Sign(payload)
			if err != nil {
				return nil, err
			}
			sigs = append(sigs, sig[:])
		}
	}
	return sigs, nil
}

func (e *simExchange) Close() error { return nil }
