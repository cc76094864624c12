package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"projection-tutor/vision"
)

// RateLimitedProvider wraps a vision provider with rate limiting and retry
// capabilities
type RateLimitedProvider struct {
	provider    vision.Provider
	rateLimiter *rate.Limiter
	maxRetries  int
	backoffMin  time.Duration
	backoffMax  time.Duration
}

// NewRateLimitedProvider wraps provider. requestsPerMinute <= 0 disables the
// limiter; maxRetries < 0 disables retries.
func NewRateLimitedProvider(provider vision.Provider, requestsPerMinute, maxRetries int) *RateLimitedProvider {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RateLimitedProvider{
		provider:    provider,
		rateLimiter: limiter,
		maxRetries:  maxRetries,
		backoffMin:  time.Second,
		backoffMax:  30 * time.Second,
	}
}

func (r *RateLimitedProvider) AnalyzeImage(ctx context.Context, imageContent []byte, prompt string) (*vision.Result, error) {
	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	attempt := 0
	for {
		result, err := r.provider.AnalyzeImage(ctx, imageContent, prompt)
		if err == nil {
			return result, nil
		}

		// A rejected credential won't fix itself, don't retry
		if errors.Is(err, vision.ErrInvalidCredential) {
			return nil, err
		}

		if attempt >= r.maxRetries {
			return nil, fmt.Errorf("all retry attempts failed: %w", err)
		}

		// Exponential backoff with +/- 20% jitter
		backoff := r.backoffMin * time.Duration(1<<uint(attempt))
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
		jitter := time.Duration(float64(backoff) * (0.8 + 0.4*rand.Float64()))

		log.WithError(err).Warnf("Vision call failed, retrying in %v (attempt %d/%d)", jitter, attempt+1, r.maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jitter):
		}
		attempt++
	}
}
