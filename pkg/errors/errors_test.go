package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeAuthorizationFailed, "Wallet authorization failed")
	assert.Equal(t, "authorization_failed: Wallet authorization failed", err.Error())

	withDetail := NewWithDetail(ErrCodeSessionNotFound, "Wallet session not found", "id-123")
	assert.Equal(t, "session_not_found: Wallet session not found (id-123)", withDetail.Error())
}

func TestIsAppErrorUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("refresh: %w", ErrWalletNotFound)

	appErr, ok := IsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeWalletNotFound, appErr.Code)

	_, ok = IsAppError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeUserCancelled, CodeOf(ErrUserCancelled))
	assert.Equal(t, "", CodeOf(stderrors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("sign: %w", Storage("write", stderrors.New("disk full")))
	assert.True(t, HasCode(err, ErrCodeStorageError))
	assert.False(t, HasCode(err, ErrCodeAuthorizationFailed))
}

func TestPredefinedCopy(t *testing.T) {
	// User-visible copy the UI relies on for the install path.
	assert.Contains(t, ErrWalletNotFound.Message, "No compatible wallet found")
	assert.Contains(t, ErrBiometricUnavailable.Message, "Re-enable")
}
