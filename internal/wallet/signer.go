package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tidewallet/tidewallet/internal/biometric"
	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/internal/logger"
	"github.com/tidewallet/tidewallet/internal/store"
	"github.com/tidewallet/tidewallet/internal/tokenstore"
	"github.com/tidewallet/tidewallet/internal/txcodec"
	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

// Signer routes signing requests to the correct session, re-establishes an
// exchange for that session's cached token, and performs the requested
// operation. Signing always reopens via reauthorize, never a fresh
// authorize: re-prompting for wallet selection on every sign would be
// wrong.
type Signer struct {
	store   *store.SessionStore
	gate    *biometric.Gate
	channel *channel.Channel
	tokens  tokenstore.Store
	events  EventSink

	timeout time.Duration
	nowMS   func() int64
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithSignerEventSink attaches an observability sink.
func WithSignerEventSink(sink EventSink) SignerOption {
	return func(s *Signer) { s.events = sink }
}

// WithSignerExchangeTimeout bounds each signing exchange.
func WithSignerExchangeTimeout(d time.Duration) SignerOption {
	return func(s *Signer) { s.timeout = d }
}

// WithSignerClock overrides the timestamp source, for tests.
func WithSignerClock(nowMS func() int64) SignerOption {
	return func(s *Signer) { s.nowMS = nowMS }
}

// NewSigner creates a signing coordinator.
func NewSigner(st *store.SessionStore, gate *biometric.Gate, ch *channel.Channel, tokens tokenstore.Store, opts ...SignerOption) *Signer {
	s := &Signer{
		store:   st,
		gate:    gate,
		channel: ch,
		tokens:  tokens,
		events:  LogSink{},
		nowMS:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignOptions select which session performs a signing operation.
// Precedence: SessionID, then WalletAddress, then the active session.
type SignOptions struct {
	SessionID     string
	WalletAddress string
}

// SignTransaction signs one transaction and returns transport-ready bytes.
func (s *Signer) SignTransaction(ctx context.Context, rawTx []byte, opts *SignOptions) ([]byte, error) {
	signed, err := s.SignAllTransactions(ctx, [][]byte{rawTx}, opts)
	if err != nil {
		return nil, err
	}
	return signed[0], nil
}

// SignAllTransactions signs a batch in one exchange. Opening one exchange
// per transaction would multiply user-visible latency and wallet round
// trips, so the whole batch rides a single reauthorized exchange.
func (s *Signer) SignAllTransactions(ctx context.Context, rawTxs [][]byte, opts *SignOptions) ([][]byte, error) {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	if len(rawTxs) == 0 {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "No transactions to sign", "")
	}
	for _, raw := range rawTxs {
		if _, err := txcodec.Decode(raw); err != nil {
			return nil, err
		}
	}

	sess, err := s.resolveConnected(opts)
	if err != nil {
		return nil, err
	}

	prompt := "Approve transaction"
	if len(rawTxs) > 1 {
		prompt = "Approve transactions"
	}

	var signed [][]byte
	err = s.withExchange(ctx, sess, prompt, func(ctx context.Context, ex channel.Exchange) error {
		out, err := ex.SignTransactions(ctx, rawTxs)
		if err != nil {
			return channel.Classify(err)
		}
		if len(out) != len(rawTxs) {
			return apperrors.ErrNoSignatureReturned
		}

		signed = make([][]byte, len(out))
		for i, rawSigned := range out {
			bytes, err := txcodec.CheckSigned(rawSigned)
			if err != nil {
				return err
			}
			signed[i] = bytes
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, sess, string(types.SignMethodTransaction), err)
		return nil, err
	}

	s.complete(ctx, sess, string(types.SignMethodTransaction), len(signed))
	return signed, nil
}

// SignMessage signs an arbitrary payload with the session's account.
func (s *Signer) SignMessage(ctx context.Context, payload []byte, opts *SignOptions) ([]byte, error) {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	if len(payload) == 0 {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "No message to sign", "")
	}

	sess, err := s.resolveConnected(opts)
	if err != nil {
		return nil, err
	}

	address, err := txcodec.AddressBytes(sess.Address)
	if err != nil {
		return nil, err
	}

	var signature []byte
	err = s.withExchange(ctx, sess, "Approve message", func(ctx context.Context, ex channel.Exchange) error {
		sigs, err := ex.SignMessages(ctx, [][]byte{address}, [][]byte{payload})
		if err != nil {
			return channel.Classify(err)
		}
		if len(sigs) == 0 || len(sigs[0]) == 0 {
			return apperrors.ErrNoSignatureReturned
		}
		signature = sigs[0]
		return nil
	})
	if err != nil {
		s.fail(ctx, sess, string(types.SignMethodMessage), err)
		return nil, err
	}

	s.complete(ctx, sess, string(types.SignMethodMessage), 1)
	return signature, nil
}

// resolveConnected applies the session resolution order and fails fast on
// anything not currently connected, before the gate or any exchange runs.
func (s *Signer) resolveConnected(opts *SignOptions) (*types.WalletSession, error) {
	if opts == nil {
		opts = &SignOptions{}
	}

	var sess *types.WalletSession
	switch {
	case opts.SessionID != "":
		found, ok := s.store.GetSession(opts.SessionID)
		if !ok {
			return nil, apperrors.SessionNotFound(opts.SessionID)
		}
		sess = found
	case opts.WalletAddress != "":
		found, ok := s.store.GetSessionByAddress(opts.WalletAddress)
		if !ok {
			return nil, apperrors.SessionNotFound(opts.WalletAddress)
		}
		sess = found
	default:
		found, ok := s.store.ActiveSession()
		if !ok {
			return nil, apperrors.ErrNoSessionAvailable
		}
		sess = found
	}

	if sess.Status != types.StatusConnected {
		return nil, apperrors.NewWithDetail(
			apperrors.ErrCodeNoSessionAvailable,
			"No wallet is connected",
			"session "+sess.SessionID+" is "+string(sess.Status),
		)
	}
	return sess, nil
}

// withExchange runs the gated signing pipeline: biometric approval, then
// one exchange reopened with the session's cached token, then fn. The gate
// strictly precedes the exchange it guards.
func (s *Signer) withExchange(ctx context.Context, sess *types.WalletSession, prompt string, fn func(ctx context.Context, ex channel.Exchange) error) error {
	if err := s.gate.Approve(ctx, prompt, biometric.ApproveOptions{AllowSessionReuse: true}); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.channel.Perform(ctx, func(ctx context.Context, ex channel.Exchange) error {
		res, err := ex.Reauthorize(ctx, s.channel.Identity(), sess.AuthToken)
		if err != nil {
			return channel.Classify(err)
		}
		if res.AuthToken != "" && res.AuthToken != sess.AuthToken {
			s.adoptToken(ctx, sess, res.AuthToken)
		}
		return fn(ctx, ex)
	})
}

// adoptToken stores a rotated auth token handed back by reauthorize.
func (s *Signer) adoptToken(ctx context.Context, sess *types.WalletSession, token string) {
	if err := s.store.UpdateSession(sess.SessionID, store.SessionPatch{AuthToken: &token}); err != nil {
		return
	}
	sess.AuthToken = token
	if err := s.tokens.SaveToken(ctx, sess.Address, token); err != nil {
		logger.Warn(ctx, "failed to persist rotated token", "address", sess.Address, "error", err)
	}
}

// complete records a successful signing operation on the session.
func (s *Signer) complete(ctx context.Context, sess *types.WalletSession, kind string, count int) {
	now := s.nowMS()
	_ = s.store.UpdateSession(sess.SessionID, store.SessionPatch{LastActivityAt: &now})
	s.store.SetLastError("")
	s.events.OnEvent(EventSignCompleted, map[string]any{
		"session_id": sess.SessionID,
		"kind":       kind,
		"count":      count,
	})
	logger.Info(ctx, "signing completed", "session_id", sess.SessionID, "kind", kind, "count", count)
}

// fail surfaces a signing failure. Authorization-class failures mark the
// session itself; everything else propagates without touching session
// status.
func (s *Signer) fail(ctx context.Context, sess *types.WalletSession, kind string, cause error) {
	s.store.SetLastError(cause.Error())
	if apperrors.HasCode(cause, apperrors.ErrCodeAuthorizationFailed) {
		status := types.StatusError
		msg := cause.Error()
		_ = s.store.UpdateSession(sess.SessionID, store.SessionPatch{
			Status:       &status,
			ErrorMessage: &msg,
		})
	}
	s.events.OnEvent(EventSignFailed, map[string]any{
		"session_id": sess.SessionID,
		"kind":       kind,
		"error":      cause.Error(),
	})
	logger.Warn(ctx, "signing failed", "session_id", sess.SessionID, "kind", kind, "error", cause)
}

func (s *Signer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}
