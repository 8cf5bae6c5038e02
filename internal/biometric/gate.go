// Package biometric gates privileged operations behind the platform
// authenticator. Every operation that touches a private key or a session
// token must pass the gate first.
package biometric

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
)

// Sentinel errors for Authenticator implementations. Anything else returned
// by an authenticator is treated as a denial.
var (
	ErrDenied      = errors.New("biometric authentication denied")
	ErrUnavailable = errors.New("biometric authentication unavailable")
)

// Authenticator is the platform biometric prompt. The production
// implementation is a platform binding; tests inject fakes.
type Authenticator interface {
	// Authenticate blocks on the platform prompt. It returns nil on
	// approval, ErrDenied/ErrUnavailable otherwise.
	Authenticate(ctx context.Context, prompt string) error
}

// ApproveOptions control a single gate check.
type ApproveOptions struct {
	// AllowSessionReuse lets the gate short-circuit when a prior approval
	// happened within the trust window. A single logical user action (for
	// example "add wallet") triggers several internal privileged calls and
	// re-prompting on each would be unusable.
	AllowSessionReuse bool
}

// Gate wraps an Authenticator with a short-lived trust window.
type Gate struct {
	auth   Authenticator
	window time.Duration

	mu           sync.Mutex
	lastApproval time.Time

	now func() time.Time
}

// NewGate creates a gate with the given trust window. The window must be
// short enough that it cannot span distinct user sessions; zero disables
// reuse entirely.
func NewGate(auth Authenticator, window time.Duration) *Gate {
	return &Gate{
		auth:   auth,
		window: window,
		now:    time.Now,
	}
}

// Approve resolves when the platform authenticator approves. It fails with
// a biometric_denied or biometric_unavailable AppError otherwise.
func (g *Gate) Approve(ctx context.Context, prompt string, opts ApproveOptions) error {
	if opts.AllowSessionReuse && g.window > 0 {
		g.mu.Lock()
		trusted := !g.lastApproval.IsZero() && g.now().Sub(g.lastApproval) <= g.window
		g.mu.Unlock()
		if trusted {
			return nil
		}
	}

	if err := g.auth.Authenticate(ctx, prompt); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return apperrors.ErrBiometricUnavailable
		}
		return apperrors.ErrBiometricDenied
	}

	g.mu.Lock()
	g.lastApproval = g.now()
	g.mu.Unlock()
	return nil
}

// Invalidate discards the trust window. Call it when the app backgrounds so
// a stale approval can never carry into a new foreground session.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.lastApproval = time.Time{}
	g.mu.Unlock()
}
