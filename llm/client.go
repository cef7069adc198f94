// ABOUTME: Client infrastructure for the LLM layer with provider routing and middleware.
// ABOUTME: Provides NewClient with functional options and an onion-pattern middleware chain.

package llm

import (
	"context"
	"fmt"
)

// ProviderAdapter is the interface every provider implementation satisfies.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
	Close() error
}

// Middleware wraps an LLM call, enabling request/response transformation,
// logging, retry, and other cross-cutting concerns. Middleware executes in
// registration order for requests and reverse order for responses.
type Middleware func(ctx context.Context, req Request, next NextFunc) (*Response, error)

// NextFunc is the function signature passed to middleware to continue the chain.
type NextFunc func(ctx context.Context, req Request) (*Response, error)

// Client is the entry point for making LLM API calls. It manages provider
// adapters, routes requests to the correct provider, and applies the
// middleware chain.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithProvider registers a ProviderAdapter under the given name. The first
// provider registered becomes the default when none has been set.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
		if c.defaultProvider == "" {
			c.defaultProvider = name
		}
	}
}

// WithDefaultProvider sets the provider used when a Request does not specify one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends middleware to the client's chain. The first
// middleware registered is the outermost layer.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewClient creates a new Client with the given options applied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveProvider determines which ProviderAdapter should handle the request.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, &ConfigurationError{
			SDKError: SDKError{Message: "no provider specified and no default provider configured"},
		}
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{
			SDKError: SDKError{Message: fmt.Sprintf("provider %q not registered", name)},
		}
	}
	return adapter, nil
}

// Complete sends a completion request through the middleware chain and then to
// the resolved provider adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	handler := func(ctx context.Context, req Request) (*Response, error) {
		adapter, err := c.resolveProvider(req)
		if err != nil {
			return nil, err
		}
		return adapter.Complete(ctx, req)
	}

	// Wrap in reverse order so the first middleware registered is outermost.
	chain := handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := chain
		chain = func(ctx context.Context, req Request) (*Response, error) {
			return mw(ctx, req, next)
		}
	}

	return chain(ctx, req)
}

// Close shuts down all registered provider adapters, collecting errors.
func (c *Client) Close() error {
	var errs []error
	for name, adapter := range c.providers {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing provider %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		combined := errs[0]
		for _, e := range errs[1:] {
			combined = fmt.Errorf("%w; %v", combined, e)
		}
		return combined
	}
	return nil
}

// RetryMiddleware returns middleware that retries failed completions under
// the given policy.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next NextFunc) (*Response, error) {
		var resp *Response
		err := Retry(ctx, policy, func() error {
			var callErr error
			resp, callErr = next(ctx, req)
			return callErr
		})
		return resp, err
	}
}

// LoggingMiddleware returns middleware that logs each completion call through
// logf with model, outcome, and token usage.
func LoggingMiddleware(logf func(format string, args ...any)) Middleware {
	return func(ctx context.Context, req Request, next NextFunc) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			logf("component=llm action=complete model=%s err=%v", req.Model, err)
			return resp, err
		}
		logf("component=llm action=complete model=%s finish=%s tokens_in=%d tokens_out=%d",
			req.Model, resp.FinishReason.Reason, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		return resp, err
	}
}
