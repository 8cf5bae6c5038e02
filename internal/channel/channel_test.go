package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/tests/fixtures"
	"github.com/tidewallet/tidewallet/tests/mocks"
	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

var testIdentity = types.Identity{Name: "Test App", URI: "https://test.app"}

func newChannel(ex *mocks.ScriptedExchange, opts ...channel.Option) (*channel.Channel, *mocks.ScriptedTransport) {
	transport := &mocks.ScriptedTransport{Exchange: ex}
	return channel.New(transport, testIdentity, types.ChainSolanaDevnet, opts...), transport
}

func TestAuthorizeSuccess(t *testing.T) {
	account := fixtures.NewAccount(t)
	ex := &mocks.ScriptedExchange{
		AuthorizeResult: fixtures.Grant("token-1", account.PublicKey()),
	}
	ch, transport := newChannel(ex)

	res, err := ch.Authorize(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "token-1", res.AuthToken)
	assert.Len(t, res.Accounts, 1)
	assert.Equal(t, 1, transport.OpenCalls())
	assert.Equal(t, 1, ex.CloseCalls)
}

func TestAuthorizeNoWalletInstalled(t *testing.T) {
	transport := &mocks.ScriptedTransport{OpenErr: channel.ErrNoWallet}
	ch := channel.New(transport, testIdentity, types.ChainSolanaDevnet)

	_, err := ch.Authorize(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeWalletNotFound, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "No compatible wallet found")
}

func TestAuthorizeDeclinedClassifiesUserCancelled(t *testing.T) {
	ex := &mocks.ScriptedExchange{AuthorizeErr: channel.ErrDeclined}
	ch, _ := newChannel(ex)

	_, err := ch.Authorize(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUserCancelled, apperrors.CodeOf(err))
}

func TestAuthorizeEmptyGrant(t *testing.T) {
	ex := &mocks.ScriptedExchange{AuthorizeResult: &types.AuthorizationResult{AuthToken: "t"}}
	ch, _ := newChannel(ex)

	_, err := ch.Authorize(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAuthorizationFailed, apperrors.CodeOf(err))
}

func TestReauthorizeSuccess(t *testing.T) {
	account := fixtures.NewAccount(t)
	ex := &mocks.ScriptedExchange{
		ReauthorizeResult: fixtures.Grant("token-2", account.PublicKey()),
	}
	ch, _ := newChannel(ex)

	res, err := ch.Reauthorize(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "token-2", res.AuthToken)
	assert.Equal(t, []string{"token-1"}, ex.ReauthorizedTokens)
}

func TestGenericFailureClassifiesAuthorizationFailed(t *testing.T) {
	ex := &mocks.ScriptedExchange{ReauthorizeErr: errors.New("auth_token not valid for this session")}
	ch, _ := newChannel(ex)

	_, err := ch.Reauthorize(context.Background(), "stale")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAuthorizationFailed, apperrors.CodeOf(err))
}

func TestPerformRejectsOverlappingExchange(t *testing.T) {
	ex := &mocks.ScriptedExchange{}
	ch, _ := newChannel(ex)

	var inner error
	err := ch.Perform(context.Background(), func(ctx context.Context, _ channel.Exchange) error {
		inner = ch.Perform(ctx, func(context.Context, channel.Exchange) error { return nil })
		return nil
	})
	require.NoError(t, err)
	require.Error(t, inner)
	assert.Equal(t, apperrors.ErrCodeExchangeBusy, apperrors.CodeOf(inner))
}

func TestPerformReleasesGuardAfterFailure(t *testing.T) {
	transport := &mocks.ScriptedTransport{OpenErr: channel.ErrNoWallet}
	ch := channel.New(transport, testIdentity, types.ChainSolanaDevnet)

	_, err := ch.Authorize(context.Background(), "", nil)
	require.Error(t, err)

	transport.OpenErr = nil
	transport.Exchange = &mocks.ScriptedExchange{
		AuthorizeResult: fixtures.Grant("token-1", fixtures.NewAccount(t).PublicKey()),
	}
	_, err = ch.Authorize(context.Background(), "", nil)
	assert.NoError(t, err)
}

func TestDeauthorizePropagatesClassifiedError(t *testing.T) {
	ex := &mocks.ScriptedExchange{DeauthorizeErr: errors.New("wallet gone")}
	ch, _ := newChannel(ex)

	err := ch.Deauthorize(context.Background(), "token-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAuthorizationFailed, apperrors.CodeOf(err))
	assert.Equal(t, []string{"token-1"}, ex.DeauthorizedTokens)
}

func TestCapabilities(t *testing.T) {
	ex := &mocks.ScriptedExchange{
		CapabilitiesResult: &types.Capabilities{SupportsSign: true, MaxTransactionsPerRequest: 10},
	}
	ch, _ := newChannel(ex)

	caps, err := ch.Capabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, caps.SupportsSign)
	assert.Equal(t, 10, caps.MaxTransactionsPerRequest)
}

func TestObserverSeesEveryExchange(t *testing.T) {
	ex := &mocks.ScriptedExchange{DeauthorizeErr: errors.New("boom")}
	var observed []error
	ch, _ := newChannel(ex, channel.WithObserver(func(_ time.Duration, err error) {
		observed = append(observed, err)
	}))

	require.Error(t, ch.Deauthorize(context.Background(), "t"))
	require.Len(t, observed, 1)
	assert.Error(t, observed[0])
}

func TestClassifyPassesAppErrorsThrough(t *testing.T) {
	err := channel.Classify(apperrors.ErrNoSignatureReturned)
	assert.Equal(t, apperrors.ErrCodeNoSignatureReturned, apperrors.CodeOf(err))

	assert.NoError(t, channel.Classify(nil))

	err = channel.Classify(context.Canceled)
	assert.Equal(t, apperrors.ErrCodeUserCancelled, apperrors.CodeOf(err))
}
