// Package integration exercises the full session lifecycle across the real
// store, gate, channel, and coordinators, with only the external wallet and
// the biometric hardware scripted.
package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewallet/tidewallet/internal/biometric"
	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/internal/store"
	"github.com/tidewallet/tidewallet/internal/tokenstore"
	"github.com/tidewallet/tidewallet/internal/wallet"
	"github.com/tidewallet/tidewallet/tests/fixtures"
	"github.com/tidewallet/tidewallet/tests/mocks"
	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

type harness struct {
	store     *store.SessionStore
	auth      *mocks.Authenticator
	exchange  *mocks.ScriptedExchange
	transport *mocks.ScriptedTransport
	tokens    tokenstore.Store
	events    *mocks.EventRecorder
	manager   *wallet.Manager
	signer    *wallet.Signer
}

func newHarness(t *testing.T, tokens tokenstore.Store) *harness {
	t.Helper()

	log := &mocks.CallLog{}
	h := &harness{
		store:    store.New(),
		auth:     &mocks.Authenticator{Log: log},
		exchange: &mocks.ScriptedExchange{Log: log},
		tokens:   tokens,
		events:   &mocks.EventRecorder{},
	}
	h.transport = &mocks.ScriptedTransport{Exchange: h.exchange}

	identity := types.Identity{Name: "Tidewallet", URI: "https://tidewallet.app"}
	ch := channel.New(h.transport, identity, types.ChainSolanaDevnet)
	gate := biometric.NewGate(h.auth, 5*time.Second)

	h.manager = wallet.NewManager(h.store, gate, ch, h.tokens, wallet.WithEventSink(h.events))
	h.signer = wallet.NewSigner(h.store, gate, ch, h.tokens, wallet.WithSignerEventSink(h.events))
	return h
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, tokenstore.NewMemory())

	first := fixtures.NewAccount(t).PublicKey()
	second := fixtures.NewAccount(t).PublicKey()
	h.exchange.AuthorizeResult = fixtures.Grant("token-1", first, second)

	// Connect: one authorization grants two accounts.
	result, err := h.manager.AddWallet(ctx, &wallet.AddWalletConfig{Label: "Main"})
	require.NoError(t, err)
	require.Equal(t, 2, h.store.WalletCount())
	assert.Equal(t, result.SessionID, h.store.ActiveSessionID())

	// Sign with the active session. The batch rides one reauthorized
	// exchange; the trust window spares a second biometric prompt.
	h.exchange.ReauthorizeResult = fixtures.Grant("token-1", first)
	h.exchange.SignTransactionsResult = [][]byte{fixtures.SignedLegacyTx(t, first)}

	signed, err := h.signer.SignTransaction(ctx, fixtures.UnsignedLegacyTx(t, first), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.Equal(t, 1, h.auth.Calls())
	assert.Equal(t, []string{"token-1"}, h.exchange.ReauthorizedTokens)

	// Refresh rotates the token silently.
	h.exchange.ReauthorizeResult = fixtures.Grant("token-2", first)
	refreshed := h.manager.RefreshSession(ctx, result.SessionID)
	require.NotNil(t, refreshed)
	assert.Equal(t, "token-2", refreshed.AuthToken)

	token, err := h.tokens.LoadToken(ctx, first.String())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	// Remove one wallet while the external wallet refuses to deauthorize.
	// Local state is authoritative: the session and its token still go.
	h.exchange.DeauthorizeErr = errors.New("wallet unreachable")
	require.NoError(t, h.manager.RemoveWallet(ctx, first.String()))
	assert.Equal(t, 1, h.store.WalletCount())

	token, err = h.tokens.LoadToken(ctx, first.String())
	require.NoError(t, err)
	assert.Equal(t, "", token)

	// Disconnect everything.
	require.NoError(t, h.manager.DisconnectAll(ctx))
	assert.Equal(t, 0, h.store.WalletCount())
	assert.Equal(t, "", h.store.ActiveSessionID())

	kinds := h.events.Kinds()
	assert.Contains(t, kinds, wallet.EventSessionAdded)
	assert.Contains(t, kinds, wallet.EventSignCompleted)
	assert.Contains(t, kinds, wallet.EventSessionRefreshed)
	assert.Contains(t, kinds, wallet.EventDeauthorizeFailed)
	assert.Contains(t, kinds, wallet.EventDisconnectAll)
}

func TestTokensSurviveRelaunch(t *testing.T) {
	ctx := context.Background()
	tokens := tokenstore.NewMemory()

	account := fixtures.NewAccount(t).PublicKey()

	// First launch: connect a wallet.
	h1 := newHarness(t, tokens)
	h1.exchange.AuthorizeResult = fixtures.Grant("token-1", account)
	_, err := h1.manager.AddWallet(ctx, nil)
	require.NoError(t, err)

	// Second launch shares only the token store. Restore reconnects
	// silently, with no biometric prompt.
	h2 := newHarness(t, tokens)
	h2.exchange.ReauthorizeResult = fixtures.Grant("token-2", account)

	restored := h2.manager.RestoreSessions(ctx)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 0, h2.auth.Calls())

	sess, ok := h2.store.GetSessionByAddress(account.String())
	require.True(t, ok)
	assert.Equal(t, types.StatusConnected, sess.Status)
	assert.Equal(t, "token-2", sess.AuthToken)
	assert.NotEqual(t, "", h2.store.ActiveSessionID())
}

func TestSigningAfterFailedRefreshIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, tokenstore.NewMemory())

	account := fixtures.NewAccount(t).PublicKey()
	h.exchange.AuthorizeResult = fixtures.Grant("token-1", account)

	result, err := h.manager.AddWallet(ctx, nil)
	require.NoError(t, err)

	// Both the silent and the fallback path fail: the session degrades to
	// an error state.
	h.exchange.ReauthorizeErr = errors.New("token revoked")
	h.exchange.AuthorizeErr = errors.New("user walked away")
	assert.Nil(t, h.manager.RefreshSession(ctx, result.SessionID))

	// Signing against the degraded session fails fast, before any exchange.
	opened := h.transport.OpenCalls()
	_, err = h.signer.SignTransaction(ctx, fixtures.UnsignedLegacyTx(t, account), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNoSessionAvailable, apperrors.CodeOf(err))
	assert.Equal(t, opened, h.transport.OpenCalls())

	// A later successful refresh restores signability.
	h.exchange.ReauthorizeErr = nil
	h.exchange.AuthorizeErr = nil
	h.exchange.ReauthorizeResult = fixtures.Grant("token-2", account)
	require.NotNil(t, h.manager.RefreshSession(ctx, result.SessionID))

	h.exchange.SignTransactionsResult = [][]byte{fixtures.SignedLegacyTx(t, account)}
	_, err = h.signer.SignTransaction(ctx, fixtures.UnsignedLegacyTx(t, account), nil)
	assert.NoError(t, err)
}
