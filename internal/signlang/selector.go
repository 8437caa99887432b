package signlang

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/observability"
	"github.com/echolearn/server/internal/resilience"
)

const (
	providerPrimary  = "primary"
	providerFallback = "fallback"
)

// Selector routes translations to a primary provider and substitutes the
// fallback result whenever the primary is absent or fails. Primary failures
// are logged and never returned to the caller, and they are not retried.
type Selector struct {
	primary  repositories.SignTranslator
	fallback repositories.SignTranslator
	breaker  *resilience.CircuitBreaker
	logger   *zap.Logger
}

var _ repositories.SignTranslator = (*Selector)(nil)

// WithFallback builds a Selector. primary and breaker may be nil; a nil
// fallback uses the built-in dictionary.
func WithFallback(primary, fallback repositories.SignTranslator, breaker *resilience.CircuitBreaker, logger *zap.Logger) *Selector {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
	}
}

// HasPrimary reports whether a primary provider is configured
func (s *Selector) HasPrimary() bool {
	return s.primary != nil
}

// Translate implements repositories.SignTranslator
func (s *Selector) Translate(ctx context.Context, text string) (entities.TranslationResult, error) {
	if s.primary != nil {
		result, err := s.translatePrimary(ctx, text)
		if err == nil {
			observability.RecordSignTranslation(providerPrimary)
			return result, nil
		}

		reason := failureReason(err)
		observability.RecordSignPrimaryFailure(reason)
		s.logger.Warn("Primary sign translation failed, using fallback",
			zap.String("reason", reason),
			zap.Error(err))
	}

	result, err := s.fallback.Translate(ctx, text)
	if err != nil {
		return entities.TranslationResult{}, err
	}
	observability.RecordSignTranslation(providerFallback)
	return result, nil
}

// failureReason labels a primary failure for metrics. http.Client timeouts
// surface as a net.Error rather than context.DeadlineExceeded.
func failureReason(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "circuit_open"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "error"
}

func (s *Selector) translatePrimary(ctx context.Context, text string) (entities.TranslationResult, error) {
	var result entities.TranslationResult
	call := func() error {
		var err error
		result, err = s.primary.Translate(ctx, text)
		return err
	}

	if s.breaker == nil {
		return result, call()
	}
	return result, s.breaker.Call(call)
}
