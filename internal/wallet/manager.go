// Package wallet contains the session lifecycle manager and the signing
// coordinator: the orchestration layer between the UI, the biometric gate,
// the authorization channel, and the session store.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidewallet/tidewallet/internal/biometric"
	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/internal/logger"
	"github.com/tidewallet/tidewallet/internal/store"
	"github.com/tidewallet/tidewallet/internal/tokenstore"
	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

// Manager orchestrates session add/remove/refresh/disconnect by composing
// the biometric gate, the authorization channel, and the session store. It
// owns error classification surfacing and all store mutations on those
// paths.
type Manager struct {
	store   *store.SessionStore
	gate    *biometric.Gate
	channel *channel.Channel
	tokens  tokenstore.Store
	events  EventSink

	// onConnected is the balance-refresh collaborator, invoked best-effort
	// after a session is committed.
	onConnected func(ctx context.Context, session *types.WalletSession) error

	timeout time.Duration
	nowMS   func() int64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEventSink attaches an observability sink.
func WithEventSink(sink EventSink) ManagerOption {
	return func(m *Manager) { m.events = sink }
}

// WithOnConnected registers a callback run after each committed session.
// Its errors are swallowed and logged; it must not block session commit.
func WithOnConnected(fn func(ctx context.Context, session *types.WalletSession) error) ManagerOption {
	return func(m *Manager) { m.onConnected = fn }
}

// WithExchangeTimeout bounds each exchange-bearing operation. Zero relies
// on the external wallet's own UI lifecycle.
func WithExchangeTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = d }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(nowMS func() int64) ManagerOption {
	return func(m *Manager) { m.nowMS = nowMS }
}

// NewManager creates a session lifecycle manager.
func NewManager(st *store.SessionStore, gate *biometric.Gate, ch *channel.Channel, tokens tokenstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   st,
		gate:    gate,
		channel: ch,
		tokens:  tokens,
		events:  LogSink{},
		nowMS:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddWalletConfig carries optional parameters for AddWallet.
type AddWalletConfig struct {
	Label    string
	BaseURI  string
	Features []string
}

// AddWalletResult is the primary session committed by AddWallet.
type AddWalletResult struct {
	SessionID string
	Session   *types.WalletSession
}

// AddWallet runs the full add-attempt pipeline: biometric gate, authorize
// exchange, account normalization, store commit. One authorization may
// grant several accounts; each becomes its own session sharing the auth
// token, and the first becomes the primary result and the active session.
// No partial session is ever committed on failure.
func (m *Manager) AddWallet(ctx context.Context, cfg *AddWalletConfig) (*AddWalletResult, error) {
	if cfg == nil {
		cfg = &AddWalletConfig{}
	}
	ctx = logger.WithOpID(ctx, uuid.NewString())

	m.store.SetLoading(true)
	defer m.store.SetLoading(false)

	if err := m.gate.Approve(ctx, "Connect a wallet", biometric.ApproveOptions{AllowSessionReuse: true}); err != nil {
		m.store.SetLastError(err.Error())
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.channel.Authorize(ctx, cfg.BaseURI, cfg.Features)
	if err != nil {
		logger.Warn(ctx, "wallet authorization failed", "error", err)
		m.store.SetLastError(err.Error())
		return nil, err
	}

	sessions, err := m.normalize(res, cfg.Label)
	if err != nil {
		m.store.SetLastError(err.Error())
		return nil, err
	}

	for _, sess := range sessions {
		if err := m.store.AddSession(sess); err != nil {
			m.store.SetLastError(err.Error())
			return nil, err
		}
	}
	primary := sessions[0]
	if err := m.store.SetActiveSession(primary.SessionID); err != nil {
		return nil, err
	}
	m.store.SetLastError("")

	for _, sess := range sessions {
		if err := m.tokens.SaveToken(ctx, sess.Address, sess.AuthToken); err != nil {
			// Degrades to a full authorize on next launch, nothing more.
			logger.Warn(ctx, "failed to persist auth token", "address", sess.Address, "error", err)
		}
	}

	m.events.OnEvent(EventSessionAdded, map[string]any{
		"session_id":   primary.SessionID,
		"address":      primary.Address,
		"accounts":     len(sessions),
		"wallet_count": m.store.WalletCount(),
	})

	if m.onConnected != nil {
		if err := m.onConnected(ctx, copySession(primary)); err != nil {
			logger.Warn(ctx, "post-connect callback failed", "error", err)
		}
	}

	return &AddWalletResult{
		SessionID: primary.SessionID,
		Session:   copySession(primary),
	}, nil
}

// normalize maps each granted account to a WalletSession. The accounts of
// one grant share the auth token until individually refreshed.
func (m *Manager) normalize(res *types.AuthorizationResult, label string) ([]*types.WalletSession, error) {
	now := m.nowMS()
	sessions := make([]*types.WalletSession, 0, len(res.Accounts))

	for i, acct := range res.Accounts {
		address, err := acct.Base58Address()
		if err != nil {
			return nil, apperrors.AuthorizationFailed(fmt.Sprintf("account %d: %v", i, err))
		}

		sessLabel := label
		if sessLabel == "" {
			sessLabel = acct.Label
		}
		if sessLabel == "" {
			sessLabel = res.WalletName
		}
		if sessLabel == "" {
			sessLabel = "Wallet"
		}
		if i > 0 && label == "" && acct.Label == "" {
			sessLabel = fmt.Sprintf("%s (%d)", sessLabel, i+1)
		}

		sessions = append(sessions, &types.WalletSession{
			SessionID:      uuid.NewString(),
			Address:        address,
			Label:          sessLabel,
			WalletName:     res.WalletName,
			Icon:           res.WalletIcon,
			AuthToken:      res.AuthToken,
			Status:         types.StatusConnected,
			CreatedAt:      now,
			LastActivityAt: now,
		})
	}
	if len(sessions) == 0 {
		return nil, apperrors.AuthorizationFailed("wallet granted no accounts")
	}
	return sessions, nil
}

// RemoveWallet resolves a session by id or address, revokes its token
// best-effort, and deletes the local record. Local state is authoritative:
// deletion proceeds even when remote deauthorization fails.
func (m *Manager) RemoveWallet(ctx context.Context, idOrAddress string) error {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	sess, ok := m.resolve(idOrAddress)
	if !ok {
		return apperrors.SessionNotFound(idOrAddress)
	}

	m.deauthorizeBestEffort(ctx, sess)

	if err := m.tokens.DeleteToken(ctx, sess.Address); err != nil {
		logger.Warn(ctx, "failed to delete persisted token", "address", sess.Address, "error", err)
	}

	m.store.RemoveSession(sess.SessionID)
	m.events.OnEvent(EventSessionRemoved, map[string]any{
		"session_id":   sess.SessionID,
		"address":      sess.Address,
		"wallet_count": m.store.WalletCount(),
	})
	return nil
}

// RefreshSession re-establishes authorization for one session: silent
// reauthorize first, full authorize as fallback. This is a background path
// that may run unattended, so it never returns an error and never touches
// the store's global error field; a failed refresh marks only the affected
// session with StatusError and yields nil.
func (m *Manager) RefreshSession(ctx context.Context, sessionID string) *types.WalletSession {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	sess, ok := m.store.GetSession(sessionID)
	if !ok {
		logger.Warn(ctx, "refresh requested for unknown session", "session_id", sessionID)
		return nil
	}

	if err := m.gate.Approve(ctx, "Refresh wallet connection", biometric.ApproveOptions{AllowSessionReuse: true}); err != nil {
		m.markSessionError(sessionID, err)
		return nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.reauthorizeWithFallback(ctx, sess.AuthToken)
	if err != nil {
		logger.Warn(ctx, "session refresh failed", "session_id", sessionID, "error", err)
		m.markSessionError(sessionID, err)
		return nil
	}

	now := m.nowMS()
	status := types.StatusConnected
	empty := ""
	patch := store.SessionPatch{
		AuthToken:      &res.AuthToken,
		Status:         &status,
		LastActivityAt: &now,
		ErrorMessage:   &empty,
	}
	if err := m.store.UpdateSession(sessionID, patch); err != nil {
		return nil
	}

	if err := m.tokens.SaveToken(ctx, sess.Address, res.AuthToken); err != nil {
		logger.Warn(ctx, "failed to persist refreshed token", "address", sess.Address, "error", err)
	}

	m.events.OnEvent(EventSessionRefreshed, map[string]any{
		"session_id": sessionID,
		"address":    sess.Address,
	})

	refreshed, _ := m.store.GetSession(sessionID)
	return refreshed
}

// reauthorizeWithFallback enforces the silent-first policy: reauthorize
// with the cached token, and only on its failure run a full user-facing
// authorize. Skipping the silent path forces needless interaction;
// skipping the fallback breaks recovery from expired tokens.
func (m *Manager) reauthorizeWithFallback(ctx context.Context, authToken string) (*types.AuthorizationResult, error) {
	if authToken != "" {
		res, err := m.channel.Reauthorize(ctx, authToken)
		if err == nil {
			return res, nil
		}
		if apperrors.HasCode(err, apperrors.ErrCodeExchangeBusy) {
			// The wallet is mid-exchange; a fresh authorize would collide too.
			return nil, err
		}
		logger.Debug(ctx, "silent reauthorize failed, falling back to authorize", "error", err)
	}
	return m.channel.Authorize(ctx, "", nil)
}

// DisconnectAll revokes every session best-effort and clears the store.
// Revocations run one at a time: the channel allows a single exchange in
// flight, so a parallel fan-out would only trip its guard. No single
// failure aborts the batch.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	sessions := m.store.GetAllSessions()
	for _, sess := range sessions {
		m.deauthorizeBestEffort(ctx, sess)
		if err := m.tokens.DeleteToken(ctx, sess.Address); err != nil {
			logger.Warn(ctx, "failed to delete persisted token", "address", sess.Address, "error", err)
		}
	}

	m.store.Clear()
	m.events.OnEvent(EventDisconnectAll, map[string]any{
		"sessions": len(sessions),
	})
	return nil
}

// SetActiveWallet points the active pointer at the session resolved by id
// or address. An unknown reference is UI-observable through the store's
// error field rather than an error return; switching wallets is not a
// fatal operation.
func (m *Manager) SetActiveWallet(idOrAddress string) {
	sess, ok := m.resolve(idOrAddress)
	if !ok {
		m.store.SetLastError(apperrors.SessionNotFound(idOrAddress).Error())
		return
	}
	if err := m.store.SetActiveSession(sess.SessionID); err != nil {
		m.store.SetLastError(err.Error())
		return
	}
	m.store.SetLastError("")
}

// UpdateWalletLabel renames a session resolved by id or address.
func (m *Manager) UpdateWalletLabel(idOrAddress, label string) error {
	sess, ok := m.resolve(idOrAddress)
	if !ok {
		return apperrors.SessionNotFound(idOrAddress)
	}
	return m.store.UpdateSession(sess.SessionID, store.SessionPatch{Label: &label})
}

// RestoreSessions attempts silent reauthorization for every persisted
// token at startup, before the user is asked to re-connect anything. No
// biometric prompt: nothing privileged is released to a caller here, and
// a prompt would defeat the point of a silent restore. Failures are
// logged and skipped. Returns the number of sessions restored.
func (m *Manager) RestoreSessions(ctx context.Context) int {
	ctx = logger.WithOpID(ctx, uuid.NewString())

	addresses, err := m.tokens.Addresses(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to list persisted tokens", "error", err)
		return 0
	}

	restored := 0
	for _, address := range addresses {
		token, err := m.tokens.LoadToken(ctx, address)
		if err != nil || token == "" {
			continue
		}

		res, err := m.channel.Reauthorize(ctx, token)
		if err != nil {
			logger.Info(ctx, "silent restore failed", "address", address, "error", err)
			m.events.OnEvent(EventSessionRestoreFailed, map[string]any{
				"address": address,
				"error":   err.Error(),
			})
			continue
		}

		sessions, err := m.normalize(res, "")
		if err != nil {
			continue
		}
		for _, sess := range sessions {
			if err := m.store.AddSession(sess); err != nil {
				continue
			}
			restored++
			if err := m.tokens.SaveToken(ctx, sess.Address, sess.AuthToken); err != nil {
				logger.Warn(ctx, "failed to persist restored token", "address", sess.Address, "error", err)
			}
		}
	}

	if restored > 0 && m.store.ActiveSessionID() == "" {
		if all := m.store.GetAllSessions(); len(all) > 0 {
			_ = m.store.SetActiveSession(all[0].SessionID)
		}
	}
	return restored
}

// Capabilities queries the connected wallet's feature support.
func (m *Manager) Capabilities(ctx context.Context) (*types.Capabilities, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.channel.Capabilities(ctx)
}

// deauthorizeBestEffort revokes a session's token remotely. Failure is
// logged and reported through the event sink, never propagated.
func (m *Manager) deauthorizeBestEffort(ctx context.Context, sess *types.WalletSession) {
	if sess.AuthToken == "" {
		return
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.channel.Deauthorize(ctx, sess.AuthToken); err != nil {
		logger.Warn(ctx, "deauthorize failed, removing local session anyway",
			"session_id", sess.SessionID, "error", err)
		m.events.OnEvent(EventDeauthorizeFailed, map[string]any{
			"session_id": sess.SessionID,
			"address":    sess.Address,
			"error":      err.Error(),
		})
	}
}

func (m *Manager) markSessionError(sessionID string, cause error) {
	status := types.StatusError
	msg := cause.Error()
	_ = m.store.UpdateSession(sessionID, store.SessionPatch{
		Status:       &status,
		ErrorMessage: &msg,
	})
}

// resolve finds a session by id first, then by address.
func (m *Manager) resolve(idOrAddress string) (*types.WalletSession, bool) {
	if sess, ok := m.store.GetSession(idOrAddress); ok {
		return sess, true
	}
	return m.store.GetSessionByAddress(idOrAddress)
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return ctx, func() {}
}

func copySession(s *types.WalletSession) *types.WalletSession {
	cp := *s
	return &cp
}
