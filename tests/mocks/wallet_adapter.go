// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/tidewallet/tidewallet/internal/channel"
	"github.com/tidewallet/tidewallet/pkg/types"
)

// CallLog is an ordered record of calls shared between mocks, for
// asserting cross-component ordering (gate before exchange, silent-first).
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Append records a call.
func (l *CallLog) Append(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

// Calls returns a copy of the recorded call names in order.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Count returns how many recorded calls match name.
func (l *CallLog) Count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

// ScriptedExchange is a channel.Exchange whose responses are fixed up
// front. Every call is recorded, with arguments where tests assert on them.
type ScriptedExchange struct {
	mu  sync.Mutex
	Log *CallLog

	AuthorizeResult   *types.AuthorizationResult
	AuthorizeErr      error
	ReauthorizeResult *types.AuthorizationResult
	ReauthorizeErr    error
	DeauthorizeErr    error

	CapabilitiesResult *types.Capabilities
	CapabilitiesErr    error

	SignTransactionsResult [][]byte
	SignTransactionsErr    error
	SignMessagesResult     [][]byte
	SignMessagesErr        error

	ReauthorizedTokens []string
	DeauthorizedTokens []string
	SignedTransactions [][]byte
	SignedPayloads     [][]byte
	CloseCalls         int
}

func (e *ScriptedExchange) record(name string) {
	if e.Log != nil {
		e.Log.Append(name)
	}
}

func (e *ScriptedExchange) Authorize(_ context.Context, _ channel.AuthorizeRequest) (*types.AuthorizationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("authorize")
	if e.AuthorizeErr != nil {
		return nil, e.AuthorizeErr
	}
	return e.AuthorizeResult, nil
}

func (e *ScriptedExchange) Reauthorize(_ context.Context, _ types.Identity, authToken string) (*types.AuthorizationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("reauthorize")
	e.ReauthorizedTokens = append(e.ReauthorizedTokens, authToken)
	if e.ReauthorizeErr != nil {
		return nil, e.ReauthorizeErr
	}
	return e.ReauthorizeResult, nil
}

func (e *ScriptedExchange) Deauthorize(_ context.Context, authToken string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("deauthorize")
	e.DeauthorizedTokens = append(e.DeauthorizedTokens, authToken)
	return e.DeauthorizeErr
}

func (e *ScriptedExchange) GetCapabilities(_ context.Context) (*types.Capabilities, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("get_capabilities")
	if e.CapabilitiesErr != nil {
		return nil, e.CapabilitiesErr
	}
	return e.CapabilitiesResult, nil
}

func (e *ScriptedExchange) SignTransactions(_ context.Context, transactions [][]byte) ([][]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("sign_transactions")
	e.SignedTransactions = append(e.SignedTransactions, transactions...)
	if e.SignTransactionsErr != nil {
		return nil, e.SignTransactionsErr
	}
	return e.SignTransactionsResult, nil
}

func (e *ScriptedExchange) SignMessages(_ context.Context, _ [][]byte, payloads [][]byte) ([][]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("sign_messages")
	e.SignedPayloads = append(e.SignedPayloads, payloads...)
	if e.SignMessagesErr != nil {
		return nil, e.SignMessagesErr
	}
	return e.SignMessagesResult, nil
}

func (e *ScriptedExchange) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CloseCalls++
	return nil
}

// ScriptedTransport is a channel.Transport handing out one ScriptedExchange.
type ScriptedTransport struct {
	mu        sync.Mutex
	Exchange  *ScriptedExchange
	OpenErr   error
	openCalls int
}

func (t *ScriptedTransport) Open(_ context.Context) (channel.Exchange, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openCalls++
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	return t.Exchange, nil
}

// OpenCalls returns how many exchanges were opened.
func (t *ScriptedTransport) OpenCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openCalls
}

// Authenticator is a scripted biometric.Authenticator.
type Authenticator struct {
	mu      sync.Mutex
	Log     *CallLog
	Err     error
	Prompts []string
}

func (a *Authenticator) Authenticate(_ context.Context, prompt string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Log != nil {
		a.Log.Append("biometric")
	}
	a.Prompts = append(a.Prompts, prompt)
	return a.Err
}

// Calls returns the number of prompts shown.
func (a *Authenticator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Prompts)
}

// EventRecorder captures coordinator events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// RecordedEvent is one captured event.
type RecordedEvent struct {
	Kind    string
	Payload map[string]any
}

func (r *EventRecorder) OnEvent(kind string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Kind: kind, Payload: payload})
}

// Events returns a copy of the captured events.
func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}

// Kinds returns the captured event kinds in order.
func (r *EventRecorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
