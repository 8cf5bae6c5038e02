// Package channel adapts the external wallet-authorization protocol. Each
// call is a single-shot, exclusive, asynchronous exchange with an external
// application; the protocol has no built-in mutual exclusion, so the channel
// enforces one exchange in flight with an explicit guard.
package channel

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

// Channel wraps a Transport with exchange exclusivity, an optional open
// throttle, and error classification.
type Channel struct {
	transport Transport
	identity  types.Identity
	chain     string

	inFlight atomic.Bool
	limiter  *rate.Limiter
	observer func(d time.Duration, err error)
}

// Option configures a Channel.
type Option func(*Channel)

// WithRateLimit throttles exchange opens to r per second with the given
// burst. A misbehaving caller loop would otherwise hammer the external
// wallet app with intents.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Channel) {
		if r > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithObserver registers a callback invoked with the duration and outcome
// of every completed exchange.
func WithObserver(fn func(d time.Duration, err error)) Option {
	return func(c *Channel) {
		c.observer = fn
	}
}

// New creates a channel for the given app identity and chain.
func New(transport Transport, identity types.Identity, chain string, opts ...Option) *Channel {
	c := &Channel{
		transport: transport,
		identity:  identity,
		chain:     chain,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the app identity presented to wallets.
func (c *Channel) Identity() types.Identity {
	return c.identity
}

// Chain returns the chain identifier sent in authorize requests.
func (c *Channel) Chain() string {
	return c.chain
}

// Perform opens one exchange, runs fn against it, and closes it. An
// overlapping call fails immediately with exchange_busy: two concurrent
// exchanges against the same wallet app produce undefined behavior, and
// failing fast keeps the UI honest about the wallet being mid-interaction.
func (c *Channel) Perform(ctx context.Context, fn func(ctx context.Context, ex Exchange) error) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return apperrors.ErrExchangeBusy
	}
	defer c.inFlight.Store(false)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Classify(err)
		}
	}

	start := time.Now()
	err := c.perform(ctx, fn)
	if c.observer != nil {
		c.observer(time.Since(start), err)
	}
	return err
}

func (c *Channel) perform(ctx context.Context, fn func(ctx context.Context, ex Exchange) error) error {
	ex, err := c.transport.Open(ctx)
	if err != nil {
		return Classify(err)
	}
	defer ex.Close()

	return fn(ctx, ex)
}

// Authorize runs a full user-facing authorization in a single exchange.
func (c *Channel) Authorize(ctx context.Context, baseURI string, features []string) (*types.AuthorizationResult, error) {
	var result *types.AuthorizationResult
	err := c.Perform(ctx, func(ctx context.Context, ex Exchange) error {
		res, err := ex.Authorize(ctx, AuthorizeRequest{
			Identity: c.identity,
			Chain:    c.chain,
			Features: features,
			BaseURI:  baseURI,
		})
		if err != nil {
			return Classify(err)
		}
		if len(res.Accounts) == 0 {
			return apperrors.AuthorizationFailed("wallet granted no accounts")
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reauthorize resumes a session silently with a cached token in a single
// exchange. Callers must try this before a fresh Authorize whenever a token
// exists: it succeeds without external UI when the token is still valid.
func (c *Channel) Reauthorize(ctx context.Context, authToken string) (*types.AuthorizationResult, error) {
	var result *types.AuthorizationResult
	err := c.Perform(ctx, func(ctx context.Context, ex Exchange) error {
		res, err := ex.Reauthorize(ctx, c.identity, authToken)
		if err != nil {
			return Classify(err)
		}
		if len(res.Accounts) == 0 {
			return apperrors.AuthorizationFailed("wallet granted no accounts")
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deauthorize revokes a token. Best-effort by contract: callers must not
// let its failure block local session removal.
func (c *Channel) Deauthorize(ctx context.Context, authToken string) error {
	return c.Perform(ctx, func(ctx context.Context, ex Exchange) error {
		if err := ex.Deauthorize(ctx, authToken); err != nil {
			return Classify(err)
		}
		return nil
	})
}

// Capabilities queries what the connected wallet supports.
func (c *Channel) Capabilities(ctx context.Context) (*types.Capabilities, error) {
	var caps *types.Capabilities
	err := c.Perform(ctx, func(ctx context.Context, ex Exchange) error {
		res, err := ex.GetCapabilities(ctx)
		if err != nil {
			return Classify(err)
		}
		caps = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return caps, nil
}

// Classify maps a transport or exchange error into the typed taxonomy.
// Classification happens here, where the protocol error is caught, so
// downstream code never pattern-matches message text.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoWallet):
		return apperrors.ErrWalletNotFound
	case errors.Is(err, ErrDeclined), errors.Is(err, context.Canceled):
		return apperrors.ErrUserCancelled
	default:
		if _, ok := apperrors.IsAppError(err); ok {
			return err
		}
		return apperrors.AuthorizationFailed(err.Error())
	}
}
