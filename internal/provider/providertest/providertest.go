// Package providertest provides a scriptable in-memory wallet provider for tests.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mrz1836/idealink/internal/provider"
)

// Handler answers a request. The returned value is JSON-encoded as the result.
type Handler func(ctx context.Context, params []any) (any, error)

// Call records one request.
type Call struct {
	Method string
	Params []any
}

// Provider is an in-memory provider.Provider. Unscripted methods fail with
// a method-not-found error.
type Provider struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	closed   bool
	emitter  provider.Emitter
}

var _ provider.Provider = (*Provider)(nil)

// New creates an empty Provider.
func New() *Provider {
	return &Provider{handlers: make(map[string]Handler)}
}

// Handle scripts method with h.
func (p *Provider) Handle(method string, h Handler) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = h
	return p
}

// Returns scripts method to always return result.
func (p *Provider) Returns(method string, result any) *Provider {
	return p.Handle(method, func(context.Context, []any) (any, error) {
		return result, nil
	})
}

// Fails scripts method to always return err.
func (p *Provider) Fails(method string, err error) *Provider {
	return p.Handle(method, func(context.Context, []any) (any, error) {
		return nil, err
	})
}

// Request implements provider.Provider.
func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Params: params})
	h, ok := p.handlers[method]
	p.mu.Unlock()

	if !ok {
		return nil, provider.NewRPCError(provider.CodeMethodNotFound, fmt.Sprintf("the method %s does not exist/is not available", method))
	}

	result, err := h(ctx, params)
	if err != nil {
		return nil, err
	}
	if raw, isRaw := result.(json.RawMessage); isRaw {
		return raw, nil
	}
	return json.Marshal(result)
}

// On implements provider.Provider.
func (p *Provider) On(event string, handler func(json.RawMessage)) func() {
	return p.emitter.On(event, handler)
}

// Emit publishes an event to registered handlers. payload is JSON-encoded
// unless it already is a json.RawMessage.
func (p *Provider) Emit(event string, payload any) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			panic(err)
		}
	}
	p.emitter.Emit(event, raw)
}

// Listeners returns the number of handlers registered for event.
func (p *Provider) Listeners(event string) int {
	return p.emitter.Len(event)
}

// Close implements provider.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Calls returns the recorded requests for method, or every request when
// method is empty.
func (p *Provider) Calls(method string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Call, 0, len(p.calls))
	for _, c := range p.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many times method was requested.
func (p *Provider) CallCount(method string) int {
	return len(p.Calls(method))
}

// Methods returns the sequence of requested method names.
func (p *Provider) Methods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.Method
	}
	return out
}

// Reset forgets recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
