// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
	"github.com/tomtom215/callrelay/internal/validation"
)

const breakerName = "upstream-recordings"

// CircuitBreakerGateway wraps Gateway with the circuit breaker pattern.
// Consecutive provider failures open the circuit; while it is open calls fail
// immediately with an *UpstreamError matching ErrCircuitOpen.
//
// A 404, a malformed id, or a caller that cancelled its own request is not
// a provider failure and does not count towards tripping.
type CircuitBreakerGateway struct {
	gateway *Gateway
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
}

// NewCircuitBreakerGateway wraps gateway using the breaker settings in cfg.
func NewCircuitBreakerGateway(gateway *Gateway, cfg *config.UpstreamConfig) *CircuitBreakerGateway {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1, // single probe in half-open state
		Interval:    cfg.BreakerInterval,
		Timeout:     timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= maxFailures
			if shouldTrip {
				logging.Warn().
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: isSuccessful,

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerGateway{
		gateway: gateway,
		cb:      cb,
		name:    breakerName,
	}
}

// isSuccessful reports whether err leaves the provider's health untouched.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidRecordingID) ||
		errors.Is(err, context.Canceled)
}

// execute runs fn through the breaker. Rejections become *UpstreamError.
func (cbg *CircuitBreakerGateway) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbg.cb.Execute(fn)
	if isSuccessful(err) {
		metrics.CircuitBreakerRequests.WithLabelValues(cbg.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbg.name).Set(0)
		return result, err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(cbg.name, "rejected").Inc()
		logging.Warn().Err(err).Str("operation", op).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("%w: %w", ErrCircuitOpen, err)}
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbg.name, "failure").Inc()
	counts := cbg.cb.Counts()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbg.name).Set(float64(counts.ConsecutiveFailures))
	return nil, err
}

// State returns the current breaker state name.
func (cbg *CircuitBreakerGateway) State() string {
	return stateToString(cbg.cb.State())
}

// ListRecent lists recent recordings with circuit breaker protection.
func (cbg *CircuitBreakerGateway) ListRecent(ctx context.Context, limit int) ([]models.RecordingReference, error) {
	result, err := cbg.execute(OpListRecordings, func() (interface{}, error) {
		return cbg.gateway.ListRecent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	refs, ok := result.([]models.RecordingReference)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return refs, nil
}

// ResolveAccessURL resolves a recording's audio URL with circuit breaker protection.
// Malformed ids are rejected before reaching the breaker.
func (cbg *CircuitBreakerGateway) ResolveAccessURL(ctx context.Context, id string) (string, error) {
	if !validation.IsRecordingSID(id) {
		return "", ErrInvalidRecordingID
	}
	result, err := cbg.execute(OpResolveAccessURL, func() (interface{}, error) {
		return cbg.gateway.ResolveAccessURL(ctx, id)
	})
	if err != nil {
		return "", err
	}
	accessURL, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return accessURL, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
