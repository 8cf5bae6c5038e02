package biometric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
)

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, _ string) error {
	f.calls++
	return f.err
}

func TestApproveRecordsTrustWindow(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, 5*time.Second)

	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{AllowSessionReuse: true}))

	// The second call reused the window instead of re-prompting.
	assert.Equal(t, 1, auth.calls)
}

func TestApproveWithoutReusePromptsEveryTime(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, 5*time.Second)

	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))

	assert.Equal(t, 2, auth.calls)
}

func TestApproveExpiredWindowPromptsAgain(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, 5*time.Second)

	now := time.Now()
	gate.now = func() time.Time { return now }
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))

	gate.now = func() time.Time { return now.Add(6 * time.Second) }
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{AllowSessionReuse: true}))

	assert.Equal(t, 2, auth.calls)
}

func TestApproveZeroWindowDisablesReuse(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, 0)

	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{AllowSessionReuse: true}))

	assert.Equal(t, 2, auth.calls)
}

func TestInvalidateDiscardsWindow(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, time.Minute)

	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{}))
	gate.Invalidate()
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{AllowSessionReuse: true}))

	assert.Equal(t, 2, auth.calls)
}

func TestApproveDenied(t *testing.T) {
	auth := &fakeAuth{err: ErrDenied}
	gate := NewGate(auth, time.Minute)

	err := gate.Approve(context.Background(), "test", ApproveOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBiometricDenied, apperrors.CodeOf(err))

	// A denial never establishes trust.
	auth.err = nil
	require.NoError(t, gate.Approve(context.Background(), "test", ApproveOptions{AllowSessionReuse: true}))
	assert.Equal(t, 2, auth.calls)
}

func TestApproveUnavailable(t *testing.T) {
	auth := &fakeAuth{err: ErrUnavailable}
	gate := NewGate(auth, time.Minute)

	err := gate.Approve(context.Background(), "test", ApproveOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBiometricUnavailable, apperrors.CodeOf(err))
}
