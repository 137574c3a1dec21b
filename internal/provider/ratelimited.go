package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedCompleter throttles upstream completion calls with a token
// bucket. It blocks inside Complete rather than rejecting, so a burst of
// concurrent sessions queues instead of failing.
type RateLimitedCompleter struct {
	completer Completer
	limiter   *rate.Limiter
}

// NewRateLimitedCompleter wraps a completer with a requests-per-second cap.
func NewRateLimitedCompleter(completer Completer, requestsPerSecond float64, burst int) *RateLimitedCompleter {
	return &RateLimitedCompleter{
		completer: completer,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Name returns the wrapped provider's name.
func (p *RateLimitedCompleter) Name() string {
	return p.completer.Name()
}

// Complete waits for limiter capacity, then calls the wrapped provider.
// A context cancelled while waiting surfaces as a timeout-class failure.
func (p *RateLimitedCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, NewUnavailable(p.completer.Name(), ErrorCodeTimeout,
			fmt.Sprintf("rate limit wait: %v", err))
	}
	return p.completer.Complete(ctx, req)
}
